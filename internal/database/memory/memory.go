// Package memory — хранилище каталога в памяти процесса.
// Используется в тестах и при DATABASE_URL=memory://.
package memory

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/GoArmGo/BookCatalog/internal/core/ports"
	"github.com/GoArmGo/BookCatalog/internal/domain"
	"github.com/GoArmGo/BookCatalog/internal/schema"
)

var _ ports.Gateway = (*Gateway)(nil)

type state struct {
	books []domain.Book
	users []domain.User
	audit []domain.AuditEntry
	seq   map[string]int64
}

func (s *state) clone() *state {
	seq := make(map[string]int64, len(s.seq))
	for k, v := range s.seq {
		seq[k] = v
	}
	return &state{
		books: slices.Clone(s.books),
		users: slices.Clone(s.users),
		audit: slices.Clone(s.audit),
		seq:   seq,
	}
}

func (s *state) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// Gateway реализует ports.Gateway в памяти. Сессии выполняются по одной:
// каждая работает с копией состояния, которая подменяет общее только при успехе.
// Ограничения (уникальность, длина строк) берутся из schema.Define().
type Gateway struct {
	sem    chan struct{}
	st     *state
	schema schema.Descriptor
	now    func() time.Time
	logger *slog.Logger
	closed bool
}

func NewGateway(logger *slog.Logger) *Gateway {
	return &Gateway{
		sem:    make(chan struct{}, 1),
		st:     &state{seq: map[string]int64{}},
		schema: schema.Define(),
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// acquire ждёт своей очереди на сессию, пока жив ctx.
func (g *Gateway) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case g.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gateway) release() { <-g.sem }

func (g *Gateway) WithSession(ctx context.Context, fn func(ctx context.Context, s ports.Session) error) error {
	if err := g.acquire(ctx); err != nil {
		return &domain.StoreError{Op: "begin", Err: err}
	}
	defer g.release()

	if g.closed {
		return &domain.StoreError{Op: "begin", Err: fmt.Errorf("gateway closed")}
	}

	work := g.st.clone()
	if err := fn(ctx, &session{g: g, st: work}); err != nil {
		g.logger.Debug("memory session rolled back", "error", err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return &domain.StoreError{Op: "session", Err: err}
	}

	g.st = work
	return nil
}

func (g *Gateway) Ping(ctx context.Context) error {
	if err := g.acquire(ctx); err != nil {
		return &domain.StoreError{Op: "ping", Err: err}
	}
	defer g.release()
	if g.closed {
		return &domain.StoreError{Op: "ping", Err: fmt.Errorf("gateway closed")}
	}
	return nil
}

func (g *Gateway) Close() error {
	g.sem <- struct{}{}
	defer g.release()
	g.closed = true
	return nil
}

// checkRow повторяет ограничения таблицы так, как их проверил бы PostgreSQL.
func (g *Gateway) checkRow(table, entity string, row map[string]any, existing []map[string]any) error {
	e, ok := g.schema.Entity(table)
	if !ok {
		return &domain.StoreError{Op: "insert", Err: fmt.Errorf("unknown table %s", table)}
	}

	for _, f := range e.Fields {
		s, ok := row[f.Name].(string)
		if !ok {
			continue
		}
		if strings.ContainsRune(s, 0) {
			return &domain.StoreError{
				Op:  "insert " + table,
				Err: fmt.Errorf("invalid byte sequence in %s.%s: 0x00", table, f.Name),
			}
		}
		if f.MaxLength > 0 && utf8.RuneCountInString(s) > f.MaxLength {
			return &domain.StoreError{
				Op:  "insert " + table,
				Err: fmt.Errorf("value too long for %s.%s (max %d)", table, f.Name, f.MaxLength),
			}
		}
	}

	for _, f := range e.UniqueFields() {
		for _, other := range existing {
			if other[f.Name] == row[f.Name] {
				return &domain.ConflictError{Entity: entity, Field: f.Name}
			}
		}
	}
	return nil
}

type session struct {
	g  *Gateway
	st *state
}

func bookRow(b domain.Book) map[string]any {
	return map[string]any{"title": b.Title, "author": b.Author, "isbn": b.ISBN}
}

func userRow(u domain.User) map[string]any {
	return map[string]any{
		"first_name":    u.FirstName,
		"last_name":     u.LastName,
		"email":         u.Email,
		"password_hash": u.PasswordHash,
	}
}

func auditRow(a domain.AuditEntry) map[string]any {
	return map[string]any{"event_id": a.EventID, "event_type": a.EventType, "entity": a.Entity}
}

func rowsOf[T any](items []T, row func(T) map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		out = append(out, row(it))
	}
	return out
}

func (s *session) CreateBook(ctx context.Context, book *domain.Book) error {
	if err := ctx.Err(); err != nil {
		return &domain.StoreError{Op: "create book", Err: err}
	}
	if err := s.g.checkRow("books", domain.BookEntity, bookRow(*book), rowsOf(s.st.books, bookRow)); err != nil {
		return err
	}
	book.ID = s.st.next("books")
	s.st.books = append(s.st.books, *book)
	return nil
}

func (s *session) GetBook(ctx context.Context, id int64) (domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return domain.Book{}, &domain.StoreError{Op: "get book", Err: err}
	}
	for _, b := range s.st.books {
		if b.ID == id {
			return b, nil
		}
	}
	return domain.Book{}, &domain.NotFoundError{Entity: domain.BookEntity, ID: id}
}

func (s *session) ListBooks(ctx context.Context, filter domain.BookFilter) iter.Seq2[domain.Book, error] {
	return func(yield func(domain.Book, error) bool) {
		for _, b := range s.st.books {
			if err := ctx.Err(); err != nil {
				yield(domain.Book{}, &domain.StoreError{Op: "list books", Err: err})
				return
			}
			if !filter.Match(b) {
				continue
			}
			if !yield(b, nil) {
				return
			}
		}
	}
}

func (s *session) CreateUser(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return &domain.StoreError{Op: "create user", Err: err}
	}
	if err := s.g.checkRow("users", domain.UserEntity, userRow(*user), rowsOf(s.st.users, userRow)); err != nil {
		return err
	}
	user.ID = s.st.next("users")
	user.CreatedAt = s.g.now()
	s.st.users = append(s.st.users, *user)
	return nil
}

func (s *session) GetUser(ctx context.Context, id int64) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, &domain.StoreError{Op: "get user", Err: err}
	}
	for _, u := range s.st.users {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, &domain.NotFoundError{Entity: domain.UserEntity, ID: id}
}

func (s *session) ListUsers(ctx context.Context) iter.Seq2[domain.User, error] {
	return func(yield func(domain.User, error) bool) {
		for _, u := range s.st.users {
			if err := ctx.Err(); err != nil {
				yield(domain.User{}, &domain.StoreError{Op: "list users", Err: err})
				return
			}
			if !yield(u, nil) {
				return
			}
		}
	}
}

func (s *session) RecordAudit(ctx context.Context, entry *domain.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return &domain.StoreError{Op: "record audit", Err: err}
	}
	if err := s.g.checkRow("audit_log", "audit entry", auditRow(*entry), rowsOf(s.st.audit, auditRow)); err != nil {
		return err
	}
	entry.ID = s.st.next("audit_log")
	entry.RecordedAt = s.g.now()
	s.st.audit = append(s.st.audit, *entry)
	return nil
}

// AuditEntries возвращает копию журнала. Нужен воркеру и тестам.
func (g *Gateway) AuditEntries() []domain.AuditEntry {
	g.sem <- struct{}{}
	defer g.release()
	return slices.Clone(g.st.audit)
}
