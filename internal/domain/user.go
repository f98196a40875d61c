// internal/domain/user.go
package domain

import (
	"time"
)

// User представляет модель пользователя в системе.
// Соответствует таблице 'users' в базе данных.
// Пароль хранится только в виде bcrypt-хеша.
type User struct {
	ID           int64     `json:"id" db:"id"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// UserInput — тело запроса на регистрацию.
// ConfirmPassword нужен только для проверки и никогда не сохраняется.
type UserInput struct {
	FirstName       string `json:"first_name" validate:"required,nonul,max=50"`
	LastName        string `json:"last_name" validate:"required,nonul,max=50"`
	Email           string `json:"email" validate:"required,nonul,email,max=255"`
	Password        string `json:"password" validate:"required,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// UserView — то, что уходит клиенту. Полей с паролем здесь нет совсем.
type UserView struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// View возвращает публичное представление пользователя.
func (u User) View() UserView {
	return UserView{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}
