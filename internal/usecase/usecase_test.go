package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/GoArmGo/BookCatalog/internal/core/ports"
	"github.com/GoArmGo/BookCatalog/internal/database/memory"
	"github.com/GoArmGo/BookCatalog/internal/domain"
	"github.com/GoArmGo/BookCatalog/internal/logger"
	"github.com/GoArmGo/BookCatalog/internal/messaging/payloads"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []payloads.CatalogEventPayload
	err    error
}

func (p *recordingPublisher) PublishCatalogEvent(_ context.Context, e payloads.CatalogEventPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

type countingObserver map[string]int

func (o countingObserver) EntityCreated(entity string) { o[entity]++ }

type fixture struct {
	gw       *memory.Gateway
	pub      *recordingPublisher
	observer countingObserver
	catalog  CatalogUseCase
	users    UserUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		gw:       memory.NewGateway(logger.Discard()),
		pub:      &recordingPublisher{},
		observer: countingObserver{},
	}
	f.catalog = NewCatalogUseCase(f.gw, f.pub, f.observer, logger.Discard())
	f.users = NewUserUseCase(f.gw, f.pub, f.observer, bcrypt.MinCost, logger.Discard())
	return f
}

func (f *fixture) userCount(t *testing.T) int {
	t.Helper()
	users, err := ports.InSession(context.Background(), f.gw, func(ctx context.Context, s ports.Session) ([]domain.User, error) {
		return ports.Collect(s.ListUsers(ctx))
	})
	require.NoError(t, err)
	return len(users)
}

func validUser() domain.UserInput {
	return domain.UserInput{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "ada@example.com",
		Password:        "analytical",
		ConfirmPassword: "analytical",
	}
}

func TestCreateBook_ThenGetReturnsSameFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	yes := true

	inputs := []domain.BookInput{
		{Title: "Dune", Author: "Herbert", ISBN: "123", PublishedYear: 1965, Available: &yes},
		{Title: "Solaris", PublishedYear: 1961},
		{Title: "Война и мир", Author: "Толстой", ISBN: "978-5", PublishedYear: 1869},
	}
	for _, in := range inputs {
		created, err := f.catalog.CreateBook(ctx, in)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, created.ID, int64(1))

		got, err := f.catalog.GetBook(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, got)
		assert.Equal(t, in.Title, got.Title)
		assert.Equal(t, in.Author, got.Author)
		assert.Equal(t, in.ISBN, got.ISBN)
		assert.Equal(t, in.PublishedYear, got.PublishedYear)
		assert.True(t, got.Available, "available defaults to true")
	}
}

func TestCreateBook_DuneScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	yes := true

	_, err := f.catalog.CreateBook(ctx, domain.BookInput{Title: "Dune", Author: "Herbert", ISBN: "123", PublishedYear: 1965, Available: &yes})
	require.NoError(t, err)

	books, err := f.catalog.ListBooks(ctx, domain.BookFilter{})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, domain.Book{ID: books[0].ID, Title: "Dune", Author: "Herbert", ISBN: "123", PublishedYear: 1965, Available: true}, books[0])
	assert.GreaterOrEqual(t, books[0].ID, int64(1))
}

func TestCreateBook_ExplicitlyUnavailable(t *testing.T) {
	f := newFixture(t)
	no := false
	book, err := f.catalog.CreateBook(context.Background(), domain.BookInput{Title: "1984", PublishedYear: 1949, Available: &no})
	require.NoError(t, err)
	assert.False(t, book.Available)
}

func TestCreateBook_ValidationFailsBeforeStore(t *testing.T) {
	tests := []struct {
		name   string
		in     domain.BookInput
		fields []string
	}{
		{"empty title", domain.BookInput{Title: "", PublishedYear: 2000}, []string{"title"}},
		{"blank title", domain.BookInput{Title: "   ", PublishedYear: 2000}, []string{"title"}},
		{"zero year", domain.BookInput{Title: "Dune"}, []string{"published_year"}},
		{"negative year", domain.BookInput{Title: "Dune", PublishedYear: -5}, []string{"published_year"}},
		{"long isbn", domain.BookInput{Title: "Dune", PublishedYear: 1965, ISBN: strings.Repeat("1", 33)}, []string{"isbn"}},
		{"year beyond integer column", domain.BookInput{Title: "Dune", PublishedYear: 3_000_000_000}, []string{"published_year"}},
		{"year too large", domain.BookInput{Title: "Dune", PublishedYear: 10000}, []string{"published_year"}},
		{"nul in title", domain.BookInput{Title: "Du\x00ne", PublishedYear: 1965}, []string{"title"}},
		{"nul in author", domain.BookInput{Title: "Dune", Author: "Her\x00bert", PublishedYear: 1965}, []string{"author"}},
		{"several", domain.BookInput{}, []string{"title", "published_year"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.catalog.CreateBook(context.Background(), tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)

			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			for _, field := range tt.fields {
				assert.Contains(t, ve.Fields, field)
			}

			books, err := f.catalog.ListBooks(context.Background(), domain.BookFilter{})
			require.NoError(t, err)
			assert.Empty(t, books)
			assert.Empty(t, f.pub.events)
		})
	}
}

func TestGetBook_Missing(t *testing.T) {
	f := newFixture(t)
	for _, id := range []int64{-1, 0, 1, 999} {
		_, err := f.catalog.GetBook(context.Background(), id)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
}

func TestListBooks_EmptyAndFiltered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	books, err := f.catalog.ListBooks(ctx, domain.BookFilter{})
	require.NoError(t, err)
	assert.NotNil(t, books)
	assert.Empty(t, books)

	n, err := f.catalog.Seed(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	available := false
	books, err = f.catalog.ListBooks(ctx, domain.BookFilter{Available: &available})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "1984", books[0].Title)

	books, err = f.catalog.ListBooks(ctx, domain.BookFilter{Author: "  Harper Lee "})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "To Kill a Mockingbird", books[0].Title)
}

func TestSeed_OnlyFillsEmptyCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.catalog.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = f.catalog.Seed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	books, err := f.catalog.ListBooks(ctx, domain.BookFilter{})
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "The Great Gatsby", books[0].Title)
	assert.Equal(t, 3, f.observer[domain.BookEntity])
}

func TestCreateBook_PublishesAfterCommit(t *testing.T) {
	f := newFixture(t)
	book, err := f.catalog.CreateBook(context.Background(), domain.BookInput{Title: "Dune", PublishedYear: 1965})
	require.NoError(t, err)

	require.Len(t, f.pub.events, 1)
	ev := f.pub.events[0]
	assert.Equal(t, domain.EventBookCreated, ev.Type)
	assert.Equal(t, domain.BookEntity, ev.Entity)
	assert.Equal(t, book.ID, ev.EntityID)
	assert.Equal(t, 1, f.observer[domain.BookEntity])
}

func TestCreateBook_PublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")

	book, err := f.catalog.CreateBook(context.Background(), domain.BookInput{Title: "Dune", PublishedYear: 1965})
	require.NoError(t, err)

	got, err := f.catalog.GetBook(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, book, got)
}

func TestCreateUser_Success(t *testing.T) {
	f := newFixture(t)
	in := validUser()
	in.Email = "  Ada@Example.COM "

	view, err := f.users.CreateUser(context.Background(), in)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, view.ID, int64(1))
	assert.Equal(t, "ada@example.com", view.Email)
	assert.False(t, view.CreatedAt.IsZero())

	stored, err := ports.InSession(context.Background(), f.gw, func(ctx context.Context, s ports.Session) (domain.User, error) {
		return s.GetUser(ctx, view.ID)
	})
	require.NoError(t, err)
	assert.NotEqual(t, "analytical", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("analytical")))

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, domain.EventUserCreated, f.pub.events[0].Type)
}

func TestCreateUser_ViewHasNoPasswordMaterial(t *testing.T) {
	f := newFixture(t)
	for i, email := range []string{"a@b.com", "x.y@z.org", "long.name+tag@example.co.uk"} {
		in := validUser()
		in.Email = email
		in.Password = strings.Repeat("p", i+1)
		in.ConfirmPassword = in.Password

		view, err := f.users.CreateUser(context.Background(), in)
		require.NoError(t, err)

		raw, err := json.Marshal(view)
		require.NoError(t, err)
		var fields map[string]any
		require.NoError(t, json.Unmarshal(raw, &fields))
		assert.NotContains(t, fields, "password")
		assert.NotContains(t, fields, "confirm_password")
		assert.NotContains(t, fields, "password_hash")
	}
}

func TestCreateUser_MismatchedPasswordsPersistNothing(t *testing.T) {
	f := newFixture(t)
	_, err := f.users.CreateUser(context.Background(), domain.UserInput{
		FirstName: "A", LastName: "B", Email: "a@b.com", Password: "x", ConfirmPassword: "y",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "confirm_password")
	assert.Zero(t, f.userCount(t))
	assert.Empty(t, f.pub.events)
}

func TestCreateUser_ValidationTable(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*domain.UserInput)
		field string
	}{
		{"malformed email", func(in *domain.UserInput) { in.Email = "not-an-email" }, "email"},
		{"missing email", func(in *domain.UserInput) { in.Email = "" }, "email"},
		{"long first name", func(in *domain.UserInput) { in.FirstName = strings.Repeat("a", 51) }, "first_name"},
		{"long last name", func(in *domain.UserInput) { in.LastName = strings.Repeat("b", 51) }, "last_name"},
		{"blank first name", func(in *domain.UserInput) { in.FirstName = "  " }, "first_name"},
		{"nul in last name", func(in *domain.UserInput) { in.LastName = "Love\x00lace" }, "last_name"},
		{"missing password", func(in *domain.UserInput) { in.Password, in.ConfirmPassword = "", "" }, "password"},
		{"password over bcrypt limit", func(in *domain.UserInput) {
			in.Password = strings.Repeat("ж", 40)
			in.ConfirmPassword = in.Password
		}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := validUser()
			tt.edit(&in)

			_, err := f.users.CreateUser(context.Background(), in)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tt.field)
			assert.Zero(t, f.userCount(t))
		})
	}
}

func TestCreateUser_DuplicateEmailConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.CreateUser(ctx, validUser())
	require.NoError(t, err)

	dup := validUser()
	dup.FirstName = "Other"
	dup.Email = "ADA@example.com"
	_, err = f.users.CreateUser(ctx, dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.ErrorIs(t, err, ErrEmailTaken)

	assert.Equal(t, 1, f.userCount(t))
	assert.Len(t, f.pub.events, 1)
}

func TestGetUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.users.CreateUser(ctx, validUser())
	require.NoError(t, err)

	got, err := f.users.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = f.users.GetUser(ctx, created.ID+1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.users.GetUser(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelledContextIsStoreError(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.catalog.CreateBook(ctx, domain.BookInput{Title: "Dune", PublishedYear: 1965})
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.Empty(t, f.pub.events)
}
