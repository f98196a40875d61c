package storage

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/GoArmGo/BookCatalog/internal/domain"
)

const booksTable = "books"

const bookColumns = `id, title, author, isbn, published_year, available`

// CreateBook сохраняет книгу и проставляет сгенерированный id
func (s *session) CreateBook(ctx context.Context, book *domain.Book) error {
	start := time.Now()

	query := `
	INSERT INTO books (title, author, isbn, published_year, available)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id
	`

	err := s.tx.QueryRowxContext(ctx, query,
		book.Title, book.Author, book.ISBN, book.PublishedYear, book.Available,
	).Scan(&book.ID)
	if err != nil {
		s.logger.Error("failed to insert book", "title", book.Title, "error", err)
		return classify("create book", domain.BookEntity, booksTable, err)
	}

	s.logger.Info("book saved successfully",
		"id", book.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// GetBook получает книгу по id
func (s *session) GetBook(ctx context.Context, id int64) (domain.Book, error) {
	start := time.Now()

	var book domain.Book
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	if err := s.tx.GetContext(ctx, &book, query, id); err != nil {
		err = notFoundOr("get book", domain.BookEntity, booksTable, id, err)
		if domain.IsNotFound(err) {
			s.logger.Warn("book not found by id", "id", id)
		} else {
			s.logger.Error("failed to get book by id", "id", id, "error", err)
		}
		return domain.Book{}, err
	}

	s.logger.Debug("book retrieved by id",
		"id", id,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return book, nil
}

// ListBooks выбирает книги в порядке вставки. Запрос уходит в бд при каждом обходе.
func (s *session) ListBooks(ctx context.Context, filter domain.BookFilter) iter.Seq2[domain.Book, error] {
	query, args := listBooksQuery(filter)

	return func(yield func(domain.Book, error) bool) {
		rows, err := s.tx.QueryxContext(ctx, query, args...)
		if err != nil {
			s.logger.Error("failed to list books", "error", err)
			yield(domain.Book{}, classify("list books", domain.BookEntity, booksTable, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var book domain.Book
			if err := rows.StructScan(&book); err != nil {
				yield(domain.Book{}, &domain.StoreError{Op: "scan book", Err: err})
				return
			}
			if !yield(book, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.Book{}, &domain.StoreError{Op: "list books", Err: err})
		}
	}
}

func listBooksQuery(filter domain.BookFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.Available != nil {
		args = append(args, *filter.Available)
		conds = append(conds, fmt.Sprintf("available = $%d", len(args)))
	}
	if filter.Author != "" {
		args = append(args, filter.Author)
		conds = append(conds, fmt.Sprintf("author = $%d", len(args)))
	}

	query := `SELECT ` + bookColumns + ` FROM books`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY id`
	return query, args
}
