package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/GoArmGo/BookCatalog/internal/core/ports"
	"github.com/GoArmGo/BookCatalog/internal/domain"
)

// sampleBooks — стартовый набор каталога для режима seed
var sampleBooks = []domain.Book{
	{Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", ISBN: "978-0743273565", PublishedYear: 1925, Available: true},
	{Title: "To Kill a Mockingbird", Author: "Harper Lee", ISBN: "978-0061120084", PublishedYear: 1960, Available: true},
	{Title: "1984", Author: "George Orwell", ISBN: "978-0451524935", PublishedYear: 1949, Available: false},
}

// catalogUseCase implements CatalogUseCase
type catalogUseCase struct {
	gateway ports.Gateway
	events  eventNotifier
	logger  *slog.Logger
}

// NewCatalogUseCase создает новый экземпляр CatalogUseCase.
// observer может быть nil.
func NewCatalogUseCase(
	gateway ports.Gateway,
	publisher ports.CatalogEventPublisher,
	observer CreationObserver,
	logger *slog.Logger,
) CatalogUseCase {
	if observer == nil {
		observer = noopObserver{}
	}
	return &catalogUseCase{
		gateway: gateway,
		events:  eventNotifier{publisher: publisher, observer: observer, logger: logger},
		logger:  logger,
	}
}

func (uc *catalogUseCase) ListBooks(ctx context.Context, filter domain.BookFilter) ([]domain.Book, error) {
	filter.Author = strings.TrimSpace(filter.Author)

	books, err := ports.InSession(ctx, uc.gateway, func(ctx context.Context, s ports.Session) ([]domain.Book, error) {
		return ports.Collect(s.ListBooks(ctx, filter))
	})
	if err != nil {
		return nil, fmt.Errorf("usecase: list books: %w", err)
	}
	return books, nil
}

func (uc *catalogUseCase) GetBook(ctx context.Context, id int64) (domain.Book, error) {
	if id < 1 {
		return domain.Book{}, &domain.NotFoundError{Entity: domain.BookEntity, ID: id}
	}
	book, err := ports.InSession(ctx, uc.gateway, func(ctx context.Context, s ports.Session) (domain.Book, error) {
		return s.GetBook(ctx, id)
	})
	if err != nil {
		return domain.Book{}, fmt.Errorf("usecase: get book %d: %w", id, err)
	}
	return book, nil
}

func (uc *catalogUseCase) CreateBook(ctx context.Context, in domain.BookInput) (domain.Book, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.ISBN = strings.TrimSpace(in.ISBN)

	if err := validateInput(in); err != nil {
		return domain.Book{}, err
	}

	book := domain.Book{
		Title:         in.Title,
		Author:        in.Author,
		ISBN:          in.ISBN,
		PublishedYear: in.PublishedYear,
		Available:     true,
	}
	if in.Available != nil {
		book.Available = *in.Available
	}

	start := time.Now()
	err := uc.gateway.WithSession(ctx, func(ctx context.Context, s ports.Session) error {
		return s.CreateBook(ctx, &book)
	})
	if err != nil {
		return domain.Book{}, fmt.Errorf("usecase: create book: %w", err)
	}
	uc.logger.Info("book created", "book_id", book.ID, "duration_ms", time.Since(start).Milliseconds())

	uc.events.created(ctx, domain.EventBookCreated, domain.BookEntity, book.ID)
	return book, nil
}

func (uc *catalogUseCase) Seed(ctx context.Context) (int, error) {
	var created []domain.Book
	err := uc.gateway.WithSession(ctx, func(ctx context.Context, s ports.Session) error {
		created = created[:0]
		for _, err := range s.ListBooks(ctx, domain.BookFilter{}) {
			if err != nil {
				return err
			}
			// каталог не пуст
			return nil
		}
		for _, sample := range sampleBooks {
			book := sample
			if err := s.CreateBook(ctx, &book); err != nil {
				return err
			}
			created = append(created, book)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("usecase: seed catalog: %w", err)
	}

	for _, b := range created {
		uc.events.created(ctx, domain.EventBookCreated, domain.BookEntity, b.ID)
	}
	uc.logger.Info("catalog seeded", "books_added", len(created))
	return len(created), nil
}
