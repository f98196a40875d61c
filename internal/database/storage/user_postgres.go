package storage

import (
	"context"
	"iter"
	"time"

	"github.com/GoArmGo/BookCatalog/internal/domain"
)

const usersTable = "users"

const userColumns = `id, first_name, last_name, email, password_hash, created_at`

// CreateUser сохраняет пользователя. Занятый email — *domain.ConflictError.
func (s *session) CreateUser(ctx context.Context, user *domain.User) error {
	start := time.Now()

	query := `
	INSERT INTO users (first_name, last_name, email, password_hash)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at
	`

	err := s.tx.QueryRowxContext(ctx, query,
		user.FirstName, user.LastName, user.Email, user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		err = classify("create user", domain.UserEntity, usersTable, err)
		if domain.IsConflict(err) {
			s.logger.Warn("user email already taken")
		} else {
			s.logger.Error("failed to insert user", "error", err)
		}
		return err
	}

	s.logger.Info("user created successfully",
		"user_id", user.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// GetUser получает пользователя по id
func (s *session) GetUser(ctx context.Context, id int64) (domain.User, error) {
	var user domain.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	if err := s.tx.GetContext(ctx, &user, query, id); err != nil {
		err = notFoundOr("get user", domain.UserEntity, usersTable, id, err)
		if domain.IsNotFound(err) {
			s.logger.Warn("user not found by id", "user_id", id)
		} else {
			s.logger.Error("failed to select user", "user_id", id, "error", err)
		}
		return domain.User{}, err
	}
	return user, nil
}

// ListUsers выбирает пользователей в порядке регистрации
func (s *session) ListUsers(ctx context.Context) iter.Seq2[domain.User, error] {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`

	return func(yield func(domain.User, error) bool) {
		rows, err := s.tx.QueryxContext(ctx, query)
		if err != nil {
			s.logger.Error("failed to list users", "error", err)
			yield(domain.User{}, classify("list users", domain.UserEntity, usersTable, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var user domain.User
			if err := rows.StructScan(&user); err != nil {
				yield(domain.User{}, &domain.StoreError{Op: "scan user", Err: err})
				return
			}
			if !yield(user, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.User{}, &domain.StoreError{Op: "list users", Err: err})
		}
	}
}
