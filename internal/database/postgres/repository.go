package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mstepanov/shortling/internal/database"
	"github.com/mstepanov/shortling/internal/models"
)

type linkRecord struct {
	ID          string       `db:"id"`
	Destination string       `db:"destination"`
	VisitCount  int64        `db:"visit_count"`
	CreatedAt   time.Time    `db:"created_at"`
	LastVisitAt sql.NullTime `db:"last_visit_at"`
}

func (r *linkRecord) ToLink() *models.Link {
	link := &models.Link{
		ID:          r.ID,
		Destination: r.Destination,
		VisitCount:  r.VisitCount,
		CreatedAt:   r.CreatedAt,
	}

	if r.LastVisitAt.Valid {
		t := r.LastVisitAt.Time
		link.LastVisitAt = &t
	}

	return link
}

// LinkRepository persists links in PostgreSQL. Identifier uniqueness is
// enforced by the primary key, so Create is atomic with respect to
// concurrent inserts of the same identifier.
type LinkRepository struct {
	db *sqlx.DB
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{
		db: db,
	}
}

// Create inserts a new link if no record with the given identifier exists.
// Exactly one of several concurrent calls with the same identifier succeeds;
// the rest fail with database.ErrKeyExists.
func (r *LinkRepository) Create(ctx context.Context, id, destination string) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.Create"

	rec := new(linkRecord)
	query := `INSERT INTO links(id, destination)
		VALUES ($1, $2)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, id, destination)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrKeyExists)
		}

		return nil, fmt.Errorf("%s: failed to create link record: %w", op, err)
	}

	return rec.ToLink(), nil
}

// Get retrieves a link by its identifier without touching visit counters.
func (r *LinkRepository) Get(ctx context.Context, id string) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.Get"

	rec := new(linkRecord)
	query := `SELECT * FROM links
		WHERE id = $1`

	err := r.db.GetContext(ctx, rec, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get link record: %w", op, err)
	}

	return rec.ToLink(), nil
}

// GetByDestination retrieves the most recently created link whose destination
// matches exactly. Used for idempotent existence checks.
func (r *LinkRepository) GetByDestination(ctx context.Context, destination string) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.GetByDestination"

	rec := new(linkRecord)
	query := `SELECT * FROM links
		WHERE destination = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.GetContext(ctx, rec, query, destination)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get link record by destination: %w", op, err)
	}

	return rec.ToLink(), nil
}

// RecordVisit atomically increments the visit counter and stamps the visit
// time in a single UPDATE.
func (r *LinkRepository) RecordVisit(ctx context.Context, id string) error {
	const op = "database.postgres.LinkRepository.RecordVisit"

	query := `UPDATE links
		SET visit_count = visit_count + 1,
			last_visit_at = now()
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: failed to record visit: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
	}

	return nil
}

// Delete removes a link by its identifier and returns the deleted record.
func (r *LinkRepository) Delete(ctx context.Context, id string) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.Delete"

	rec := new(linkRecord)
	query := `DELETE FROM links
		WHERE id = $1
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to delete link record: %w", op, err)
	}

	return rec.ToLink(), nil
}

// List returns all links ordered by creation time, newest first.
func (r *LinkRepository) List(ctx context.Context) ([]*models.Link, error) {
	const op = "database.postgres.LinkRepository.List"

	var recs []linkRecord
	query := `SELECT * FROM links
		ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &recs, query); err != nil {
		return nil, fmt.Errorf("%s: failed to list link records: %w", op, err)
	}

	links := make([]*models.Link, 0, len(recs))
	for i := range recs {
		links = append(links, recs[i].ToLink())
	}

	return links, nil
}
