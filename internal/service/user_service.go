package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain"
	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/Shiyikai2002/student-trading-platform/internal/repository"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID string, role entity.Role) (string, error)
}

type LoginResult struct {
	Token string       `json:"token"`
	User  *entity.User `json:"user"`
}

type ProfileInput struct {
	Username string
	Email    string
	Bio      string
}

type UserService interface {
	Register(ctx context.Context, username, email, password string) (*entity.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	GetProfile(ctx context.Context, userID string) (*entity.User, error)
	UpdateProfile(ctx context.Context, userID string, input ProfileInput) (*entity.User, error)
	UpdateAddress(ctx context.Context, userID, address string) (*entity.User, error)
	UploadAvatar(ctx context.Context, userID string, image ImageUpload) (*entity.User, error)
}

type UserServiceConfig struct {
	InstitutionalDomain string
}

type userService struct {
	users     repository.UserRepository
	tokens    TokenIssuer
	storage   ImageStorage
	validator *entity.EmailValidator
	log       logger.Logger
}

func NewUserService(
	users repository.UserRepository,
	tokens TokenIssuer,
	storage ImageStorage,
	log logger.Logger,
	cfg UserServiceConfig,
) UserService {
	return &userService{
		users:     users,
		tokens:    tokens,
		storage:   storage,
		validator: entity.NewEmailValidator(cfg.InstitutionalDomain),
		log:       log.Named("users"),
	}
}

func (s *userService) Register(ctx context.Context, username, email, password string) (*entity.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if err := entity.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(email); err != nil {
		return nil, err
	}
	if err := entity.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &entity.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         entity.RoleCustomer,
		Balance:      decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	id, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: username or email is already registered", domain.ErrConflict)
		}
		return nil, translateRepoErr(err, "register user")
	}
	user.ID = id

	s.log.Infof("user %s registered as %s", user.ID, username)
	return user, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	invalid := fmt.Errorf("%w: invalid email or password", domain.ErrValidation)

	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid
		}
		return nil, translateRepoErr(err, "login")
	}
	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, invalid
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{Token: token, User: user}, nil
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translateRepoErr(err, "user "+userID)
	}
	return user, nil
}

// UpdateProfile re-validates the email against the institutional pattern on
// every save.
func (s *userService) UpdateProfile(ctx context.Context, userID string, input ProfileInput) (*entity.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	if err := entity.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(email); err != nil {
		return nil, err
	}

	bio := input.Bio
	err := s.users.UpdateProfile(ctx, repository.UpdateProfileParams{
		UserID:   userID,
		Username: &username,
		Email:    &email,
		Bio:      &bio,
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: username or email is already taken", domain.ErrConflict)
		}
		return nil, translateRepoErr(err, "user "+userID)
	}
	return s.GetProfile(ctx, userID)
}

func (s *userService) UpdateAddress(ctx context.Context, userID, address string) (*entity.User, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("%w: address cannot be empty", domain.ErrValidation)
	}
	if err := s.users.UpdateProfile(ctx, repository.UpdateProfileParams{UserID: userID, Address: &address}); err != nil {
		return nil, translateRepoErr(err, "user "+userID)
	}
	return s.GetProfile(ctx, userID)
}

func (s *userService) UploadAvatar(ctx context.Context, userID string, image ImageUpload) (*entity.User, error) {
	if len(image.Data) == 0 {
		return nil, fmt.Errorf("%w: image is empty", domain.ErrValidation)
	}
	if s.storage == nil {
		return nil, errors.New("image storage is not configured")
	}
	url, err := s.storage.Upload(ctx, avatarFolder, image.FileName, image.Data)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}
	if err = s.users.UpdateProfile(ctx, repository.UpdateProfileParams{UserID: userID, ProfileImageURL: &url}); err != nil {
		return nil, translateRepoErr(err, "user "+userID)
	}
	return s.GetProfile(ctx, userID)
}
