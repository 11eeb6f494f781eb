package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/mstepanov/shortling/internal/database"
	"github.com/mstepanov/shortling/internal/models"
)

var errUnknown = errors.New("unknown error")

var columns = []string{"id", "destination", "visit_count", "created_at", "last_visit_at"}

func setupLinkRepository(t testing.TB) (*LinkRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}

	db := sqlx.NewDb(mockDB, "sqlmock")
	repo := NewLinkRepository(db)

	t.Cleanup(func() {
		mockDB.Close()
		db.Close()
	})

	return repo, mock
}

func TestLinkRepository_Create(t *testing.T) {
	t.Run("key exists", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`INSERT INTO links`).
			WithArgs("mykey23", "https://example.com").
			WillReturnError(&pgconn.PgError{Code: uniqueViolationErrCode})

		link, err := repo.Create(context.TODO(), "mykey23", "https://example.com")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrKeyExists)
		assert.Nil(t, link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`INSERT INTO links`).
			WithArgs("mykey23", "https://example.com").
			WillReturnError(errUnknown)

		link, err := repo.Create(context.TODO(), "mykey23", "https://example.com")

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		rows := sqlmock.NewRows(columns).
			AddRow("mykey23", "https://example.com", 0, time.Time{}, nil)

		mock.ExpectQuery(`INSERT INTO links`).
			WithArgs("mykey23", "https://example.com").
			WillReturnRows(rows)

		wantLink := models.Link{
			ID:          "mykey23",
			Destination: "https://example.com",
		}

		link, err := repo.Create(context.TODO(), "mykey23", "https://example.com")

		assert.NoError(t, err)
		assert.NotNil(t, link)
		assert.Equal(t, wantLink, *link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLinkRepository_Get(t *testing.T) {
	t.Run("link not found", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`SELECT \* FROM links`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		link, err := repo.Get(context.TODO(), "missing")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrLinkNotFound)
		assert.Nil(t, link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`SELECT \* FROM links`).
			WithArgs("mykey23").
			WillReturnError(errUnknown)

		link, err := repo.Get(context.TODO(), "mykey23")

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		visitedAt := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
		rows := sqlmock.NewRows(columns).
			AddRow("mykey23", "https://example.com", 3, time.Time{}, visitedAt)

		mock.ExpectQuery(`SELECT \* FROM links`).
			WithArgs("mykey23").
			WillReturnRows(rows)

		link, err := repo.Get(context.TODO(), "mykey23")

		assert.NoError(t, err)
		assert.NotNil(t, link)
		assert.Equal(t, "mykey23", link.ID)
		assert.Equal(t, "https://example.com", link.Destination)
		assert.Equal(t, int64(3), link.VisitCount)
		assert.NotNil(t, link.LastVisitAt)
		assert.Equal(t, visitedAt, *link.LastVisitAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLinkRepository_GetByDestination(t *testing.T) {
	t.Run("link not found", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`SELECT \* FROM links`).
			WithArgs("https://missing.example.com").
			WillReturnError(sql.ErrNoRows)

		link, err := repo.GetByDestination(context.TODO(), "https://missing.example.com")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrLinkNotFound)
		assert.Nil(t, link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		rows := sqlmock.NewRows(columns).
			AddRow("mykey23", "https://example.com", 0, time.Time{}, nil)

		mock.ExpectQuery(`SELECT \* FROM links`).
			WithArgs("https://example.com").
			WillReturnRows(rows)

		link, err := repo.GetByDestination(context.TODO(), "https://example.com")

		assert.NoError(t, err)
		assert.NotNil(t, link)
		assert.Equal(t, "mykey23", link.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLinkRepository_RecordVisit(t *testing.T) {
	t.Run("link not found", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectExec(`UPDATE links`).
			WithArgs("missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.RecordVisit(context.TODO(), "missing")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrLinkNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectExec(`UPDATE links`).
			WithArgs("mykey23").
			WillReturnError(errUnknown)

		err := repo.RecordVisit(context.TODO(), "mykey23")

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectExec(`UPDATE links`).
			WithArgs("mykey23").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.RecordVisit(context.TODO(), "mykey23")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLinkRepository_Delete(t *testing.T) {
	t.Run("link not found", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`DELETE FROM links`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		link, err := repo.Delete(context.TODO(), "missing")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrLinkNotFound)
		assert.Nil(t, link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		rows := sqlmock.NewRows(columns).
			AddRow("mykey23", "https://example.com", 5, time.Time{}, nil)

		mock.ExpectQuery(`DELETE FROM links`).
			WithArgs("mykey23").
			WillReturnRows(rows)

		link, err := repo.Delete(context.TODO(), "mykey23")

		assert.NoError(t, err)
		assert.NotNil(t, link)
		assert.Equal(t, "mykey23", link.ID)
		assert.Equal(t, "https://example.com", link.Destination)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLinkRepository_List(t *testing.T) {
	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`SELECT \* FROM links`).
			WillReturnError(errUnknown)

		links, err := repo.List(context.TODO())

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, links)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		rows := sqlmock.NewRows(columns).
			AddRow("newer42", "https://example.com/a", 0, time.Time{}.Add(time.Hour), nil).
			AddRow("older42", "https://example.com/b", 2, time.Time{}, nil)

		mock.ExpectQuery(`SELECT \* FROM links`).
			WillReturnRows(rows)

		links, err := repo.List(context.TODO())

		assert.NoError(t, err)
		assert.Len(t, links, 2)
		assert.Equal(t, "newer42", links[0].ID)
		assert.Equal(t, "older42", links[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
