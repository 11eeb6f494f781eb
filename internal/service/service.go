package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mstepanov/shortling/internal/database"
	"github.com/mstepanov/shortling/internal/models"
	"github.com/mstepanov/shortling/internal/shortid"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrAllocationExhausted is returned when no collision-free identifier is found
// within the bounded number of attempts. It signals that the identifier space is
// too small relative to the number of stored links, not a transient condition.
var ErrAllocationExhausted = errors.New("identifier allocation exhausted")

// maxAttempts bounds the collision-retry loop of the generated-id path.
const maxAttempts = 10

// LinkRepository defines the interface for working with links at the business logic layer.
type LinkRepository interface {
	// Create inserts a new link if the identifier is free.
	// Returns database.ErrKeyExists if a record with that identifier already exists;
	// the check and the insert are a single atomic operation.
	Create(ctx context.Context, id, destination string) (*models.Link, error)

	// Get retrieves a link by its identifier without touching visit counters.
	// Returns database.ErrLinkNotFound if no record exists.
	Get(ctx context.Context, id string) (*models.Link, error)

	// GetByDestination retrieves the newest link whose destination matches exactly.
	// Returns database.ErrLinkNotFound if no record exists.
	GetByDestination(ctx context.Context, destination string) (*models.Link, error)

	// RecordVisit atomically increments the visit counter and stamps the visit time.
	RecordVisit(ctx context.Context, id string) error

	// Delete removes a link by its identifier and returns the deleted record.
	Delete(ctx context.Context, id string) (*models.Link, error)

	// List returns all links ordered by creation time, newest first.
	List(ctx context.Context) ([]*models.Link, error)
}

// LinkService implements identifier allocation and redirect resolution on top
// of a LinkRepository. Uniqueness rests entirely on the repository's atomic
// Create; the service never treats its own reads as authoritative.
type LinkService struct {
	repo        LinkRepository
	logger      *slog.Logger
	maxIDLength int
}

// NewLinkService creates a new LinkService. maxIDLength bounds both generated
// and custom identifiers.
func NewLinkService(repo LinkRepository, logger *slog.Logger, maxIDLength int) *LinkService {
	return &LinkService{
		repo:        repo,
		logger:      logger,
		maxIDLength: maxIDLength,
	}
}

// Shorten stores a destination URL under a short identifier and returns the
// created link. With a custom key the key is validated, normalized and
// reserved; a taken key is reported via database.ErrKeyExists. Without one, a
// fresh identifier is allocated, retrying on collision up to maxAttempts
// before giving up with ErrAllocationExhausted.
func (s *LinkService) Shorten(ctx context.Context, destination, customKey string) (*models.Link, error) {
	const op = "service.LinkService.Shorten"

	if customKey != "" {
		if err := shortid.Validate(customKey, s.maxIDLength); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		link, err := s.repo.Create(ctx, shortid.Normalize(customKey), destination)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to reserve custom key: %w", op, err)
		}

		return link, nil
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		id, err := s.generateID(destination, attempt)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate identifier: %w", op, err)
		}

		link, err := s.repo.Create(ctx, id, destination)
		if err != nil {
			// A concurrent insert may have taken the candidate after any
			// earlier check; the store's rejection is the collision signal.
			if errors.Is(err, database.ErrKeyExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return link, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrAllocationExhausted)
}

// generateID produces a candidate identifier of length maxIDLength by mixing
// the destination, the current time, a random nanoid and the attempt index
// through SHA-256 and encoding the digest onto the identifier alphabet.
func (s *LinkService) generateID(destination string, attempt int) (string, error) {
	entropy, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s|%d", destination, time.Now().UnixNano(), entropy, attempt)

	id := shortid.Encode(h.Sum(nil))

	return id[:s.maxIDLength], nil
}

// Resolve looks up an identifier and returns its destination link. On a hit the
// visit is recorded in a detached goroutine: the redirect response never waits
// for the counter update, and a failed update is logged, never surfaced.
func (s *LinkService) Resolve(ctx context.Context, id string) (*models.Link, error) {
	const op = "service.LinkService.Resolve"

	id = shortid.Normalize(id)

	link, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve identifier: %w", op, err)
	}

	visitCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.repo.RecordVisit(visitCtx, id); err != nil {
			s.logger.Error("failed to record visit",
				slog.String("op", op),
				slog.String("id", id),
				slog.Any("err", err),
			)
		}
	}()

	return link, nil
}

// Info retrieves a link by its identifier without recording a visit.
func (s *LinkService) Info(ctx context.Context, id string) (*models.Link, error) {
	const op = "service.LinkService.Info"

	link, err := s.repo.Get(ctx, shortid.Normalize(id))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get link: %w", op, err)
	}

	return link, nil
}

// CheckDestination returns the newest link pointing at the given destination.
// Absence is reported via database.ErrLinkNotFound; callers treat it as a
// query result, not a failure.
func (s *LinkService) CheckDestination(ctx context.Context, destination string) (*models.Link, error) {
	const op = "service.LinkService.CheckDestination"

	link, err := s.repo.GetByDestination(ctx, destination)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to check destination: %w", op, err)
	}

	return link, nil
}

// Remove deletes the link with the given identifier and returns the deleted record.
func (s *LinkService) Remove(ctx context.Context, id string) (*models.Link, error) {
	const op = "service.LinkService.Remove"

	link, err := s.repo.Delete(ctx, shortid.Normalize(id))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to remove link: %w", op, err)
	}

	return link, nil
}

// List returns all stored links, newest first.
func (s *LinkService) List(ctx context.Context) ([]*models.Link, error) {
	const op = "service.LinkService.List"

	links, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list links: %w", op, err)
	}

	return links, nil
}
