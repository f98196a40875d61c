package usecase

import (
	"context"

	"github.com/GoArmGo/BookCatalog/internal/domain"
)

// CatalogUseCase определяет бизнес-логику работы с книгами каталога
type CatalogUseCase interface {
	// ListBooks возвращает книги в порядке добавления. Пустой каталог — пустой срез.
	ListBooks(ctx context.Context, filter domain.BookFilter) ([]domain.Book, error)

	// GetBook возвращает *domain.NotFoundError, если книги с таким ID нет
	GetBook(ctx context.Context, id int64) (domain.Book, error)

	// CreateBook проверяет ввод, сохраняет книгу и публикует book.created
	CreateBook(ctx context.Context, in domain.BookInput) (domain.Book, error)

	// Seed заполняет пустой каталог стартовым набором книг.
	// Возвращает число добавленных книг; непустой каталог не трогает.
	Seed(ctx context.Context) (int, error)
}

// UserUseCase определяет бизнес-логику регистрации пользователей
type UserUseCase interface {
	// CreateUser проверяет ввод, хеширует пароль и сохраняет пользователя.
	// Занятый email — *domain.ConflictError.
	CreateUser(ctx context.Context, in domain.UserInput) (domain.UserView, error)

	GetUser(ctx context.Context, id int64) (domain.UserView, error)
}

// CreationObserver получает уведомление о каждой созданной сущности (метрики).
type CreationObserver interface {
	EntityCreated(entity string)
}

type noopObserver struct{}

func (noopObserver) EntityCreated(string) {}
