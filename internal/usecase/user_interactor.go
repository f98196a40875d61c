package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/GoArmGo/BookCatalog/internal/core/ports"
	"github.com/GoArmGo/BookCatalog/internal/domain"
)

// ErrEmailTaken — то, что видит клиент при повторной регистрации email.
// Оборачивает ConflictError хранилища, чтобы классификация не терялась.
var ErrEmailTaken = errors.New("email already in use")

// userUseCase implements UserUseCase
type userUseCase struct {
	gateway    ports.Gateway
	events     eventNotifier
	bcryptCost int
	logger     *slog.Logger
}

// NewUserUseCase создает новый экземпляр UserUseCase
func NewUserUseCase(
	gateway ports.Gateway,
	publisher ports.CatalogEventPublisher,
	observer CreationObserver,
	bcryptCost int,
	logger *slog.Logger,
) UserUseCase {
	if observer == nil {
		observer = noopObserver{}
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &userUseCase{
		gateway:    gateway,
		events:     eventNotifier{publisher: publisher, observer: observer, logger: logger},
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (uc *userUseCase) CreateUser(ctx context.Context, in domain.UserInput) (domain.UserView, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := validateInput(in); err != nil {
		return domain.UserView{}, err
	}
	if len(in.Password) > maxPasswordBytes {
		return domain.UserView{}, domain.NewValidationError("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), uc.bcryptCost)
	if err != nil {
		return domain.UserView{}, fmt.Errorf("usecase: hash password: %w", err)
	}

	user := domain.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: string(hash),
	}

	start := time.Now()
	err = uc.gateway.WithSession(ctx, func(ctx context.Context, s ports.Session) error {
		return s.CreateUser(ctx, &user)
	})
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			uc.logger.Info("user registration rejected", "reason", "duplicate email")
			return domain.UserView{}, fmt.Errorf("%w: %w", ErrEmailTaken, conflict)
		}
		return domain.UserView{}, fmt.Errorf("usecase: create user: %w", err)
	}
	uc.logger.Info("user created", "user_id", user.ID, "duration_ms", time.Since(start).Milliseconds())

	uc.events.created(ctx, domain.EventUserCreated, domain.UserEntity, user.ID)
	return user.View(), nil
}

func (uc *userUseCase) GetUser(ctx context.Context, id int64) (domain.UserView, error) {
	if id < 1 {
		return domain.UserView{}, &domain.NotFoundError{Entity: domain.UserEntity, ID: id}
	}
	user, err := ports.InSession(ctx, uc.gateway, func(ctx context.Context, s ports.Session) (domain.User, error) {
		return s.GetUser(ctx, id)
	})
	if err != nil {
		return domain.UserView{}, fmt.Errorf("usecase: get user %d: %w", id, err)
	}
	return user.View(), nil
}
