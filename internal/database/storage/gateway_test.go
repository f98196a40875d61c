package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoArmGo/BookCatalog/internal/core/ports"
	"github.com/GoArmGo/BookCatalog/internal/domain"
	"github.com/GoArmGo/BookCatalog/internal/logger"
)

var bookCols = []string{"id", "title", "author", "isbn", "published_year", "available"}

func newMockGateway(t *testing.T) (*PostgresGateway, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(mockDB, "postgres")
	t.Cleanup(func() { db.Close() })
	return NewPostgresGateway(db, logger.Discard()), mock
}

func TestWithSession_CreateBookCommits(t *testing.T) {
	gw, mock := newMockGateway(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO books (title, author, isbn, published_year, available)")).
		WithArgs("Dune", "Herbert", "123", 1965, true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	book := domain.Book{Title: "Dune", Author: "Herbert", ISBN: "123", PublishedYear: 1965, Available: true}
	err := gw.WithSession(context.Background(), func(ctx context.Context, s ports.Session) error {
		return s.CreateBook(ctx, &book)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), book.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSession_GetBookNotFoundRollsBack(t *testing.T) {
	gw, mock := newMockGateway(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, author, isbn, published_year, available FROM books WHERE id = $1")).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows(bookCols))
	mock.ExpectRollback()

	_, err := ports.InSession(context.Background(), gw, func(ctx context.Context, s ports.Session) (domain.Book, error) {
		return s.GetBook(ctx, 42)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.BookEntity, nf.Entity)
	assert.Equal(t, int64(42), nf.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSession_CreateUserConflict(t *testing.T) {
	gw, mock := newMockGateway(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (first_name, last_name, email, password_hash)")).
		WithArgs("Ada", "Lovelace", "ada@example.com", "hash").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})
	mock.ExpectRollback()

	user := domain.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", PasswordHash: "hash"}
	err := gw.WithSession(context.Background(), func(ctx context.Context, s ports.Session) error {
		return s.CreateUser(ctx, &user)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)

	var ce *domain.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "email", ce.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSession_CreateUserReturnsGeneratedFields(t *testing.T) {
	gw, mock := newMockGateway(t)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, created))
	mock.ExpectCommit()

	user := domain.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", PasswordHash: "hash"}
	err := gw.WithSession(context.Background(), func(ctx context.Context, s ports.Session) error {
		return s.CreateUser(ctx, &user)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, created, user.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBooks_FilteredAndRestartable(t *testing.T) {
	gw, mock := newMockGateway(t)
	query := regexp.QuoteMeta("SELECT id, title, author, isbn, published_year, available FROM books WHERE available = $1 AND author = $2 ORDER BY id")
	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows(bookCols).
			AddRow(1, "Dune", "Herbert", "123", 1965, true).
			AddRow(2, "Dune Messiah", "Herbert", "456", 1969, true)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(query).WithArgs(true, "Herbert").WillReturnRows(rows())
	mock.ExpectQuery(query).WithArgs(true, "Herbert").WillReturnRows(rows())
	mock.ExpectCommit()

	available := true
	filter := domain.BookFilter{Available: &available, Author: "Herbert"}

	err := gw.WithSession(context.Background(), func(ctx context.Context, s ports.Session) error {
		seq := s.ListBooks(ctx, filter)

		first, err := ports.Collect(seq)
		require.NoError(t, err)
		second, err := ports.Collect(seq)
		require.NoError(t, err)

		require.Len(t, first, 2)
		assert.Equal(t, first, second)
		assert.Equal(t, "Dune", first[0].Title)
		assert.Equal(t, int64(2), first[1].ID)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBooks_EmptyIsNotAnError(t *testing.T) {
	gw, mock := newMockGateway(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM books ORDER BY id")).WillReturnRows(sqlmock.NewRows(bookCols))
	mock.ExpectCommit()

	books, err := ports.InSession(context.Background(), gw, func(ctx context.Context, s ports.Session) ([]domain.Book, error) {
		return ports.Collect(s.ListBooks(ctx, domain.BookFilter{}))
	})
	require.NoError(t, err)
	assert.NotNil(t, books)
	assert.Empty(t, books)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSession_PanicRollsBack(t *testing.T) {
	gw, mock := newMockGateway(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "boom", func() {
		_ = gw.WithSession(context.Background(), func(ctx context.Context, s ports.Session) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSession_BeginAndCommitFailures(t *testing.T) {
	t.Run("begin", func(t *testing.T) {
		gw, mock := newMockGateway(t)
		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		called := false
		err := gw.WithSession(context.Background(), func(ctx context.Context, s ports.Session) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, domain.ErrStore)
		assert.False(t, called)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("commit", func(t *testing.T) {
		gw, mock := newMockGateway(t)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

		err := gw.WithSession(context.Background(), func(ctx context.Context, s ports.Session) error {
			return nil
		})
		assert.ErrorIs(t, err, domain.ErrStore)

		var se *domain.StoreError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "commit", se.Op)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordAudit_DuplicateEventIsConflict(t *testing.T) {
	gw, mock := newMockGateway(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO audit_log")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "audit_log_event_id_key"})
	mock.ExpectRollback()

	err := gw.WithSession(context.Background(), func(ctx context.Context, s ports.Session) error {
		return s.RecordAudit(ctx, &domain.AuditEntry{EventType: domain.EventBookCreated, Entity: domain.BookEntity, EntityID: 1})
	})
	var ce *domain.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "event_id", ce.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassify(t *testing.T) {
	err := classify("create book", domain.BookEntity, booksTable, &pq.Error{Code: "23505", Constraint: "books_isbn_key"})
	var ce *domain.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "value", ce.Field)

	err = classify("create book", domain.BookEntity, booksTable, &pq.Error{Code: "23514"})
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.NotErrorIs(t, err, domain.ErrConflict)

	err = classify("create book", domain.BookEntity, booksTable, errors.New("broken pipe"))
	assert.ErrorIs(t, err, domain.ErrStore)
}

func TestListBooksQuery(t *testing.T) {
	unavailable := false
	tests := []struct {
		name      string
		filter    domain.BookFilter
		wantQuery string
		wantArgs  []any
	}{
		{"no filter", domain.BookFilter{}, "SELECT " + bookColumns + " FROM books ORDER BY id", nil},
		{"author", domain.BookFilter{Author: "Orwell"}, "SELECT " + bookColumns + " FROM books WHERE author = $1 ORDER BY id", []any{"Orwell"}},
		{"availability", domain.BookFilter{Available: &unavailable}, "SELECT " + bookColumns + " FROM books WHERE available = $1 ORDER BY id", []any{false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, args := listBooksQuery(tt.filter)
			assert.Equal(t, tt.wantQuery, q)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
