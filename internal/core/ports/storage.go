package ports

import (
	"context"
	"iter"

	"github.com/GoArmGo/BookCatalog/internal/domain"
)

// Gateway — точка доступа к хранилищу. Всё чтение и запись идут через сессию.
type Gateway interface {
	// WithSession открывает сессию (одна транзакция) и вызывает fn.
	// Если fn вернула ошибку, запаниковала или ctx отменён — откат, иначе коммит.
	WithSession(ctx context.Context, fn func(ctx context.Context, s Session) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Session определяет операции над сущностями внутри одной транзакции
type Session interface {
	// CreateBook сохраняет книгу и проставляет ей сгенерированный ID.
	CreateBook(ctx context.Context, book *domain.Book) error
	GetBook(ctx context.Context, id int64) (domain.Book, error)
	// ListBooks возвращает книги в порядке вставки. Запрос выполняется при каждом обходе.
	ListBooks(ctx context.Context, filter domain.BookFilter) iter.Seq2[domain.Book, error]

	// CreateUser возвращает *domain.ConflictError, если email уже занят.
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id int64) (domain.User, error)
	ListUsers(ctx context.Context) iter.Seq2[domain.User, error]

	RecordAudit(ctx context.Context, entry *domain.AuditEntry) error
}

// InSession выполняет fn в сессии и возвращает её результат.
func InSession[T any](ctx context.Context, g Gateway, fn func(ctx context.Context, s Session) (T, error)) (T, error) {
	var result T
	err := g.WithSession(ctx, func(ctx context.Context, s Session) error {
		v, err := fn(ctx, s)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// Collect вычитывает последовательность целиком. Пустой результат — пустой срез, не nil.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	out := make([]T, 0)
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
