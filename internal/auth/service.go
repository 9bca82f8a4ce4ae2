package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jimdaga/habit-tracker/internal/apierr"
	"github.com/jimdaga/habit-tracker/internal/crypto"
	"github.com/jimdaga/habit-tracker/internal/models"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = apierr.New(http.StatusUnauthorized, "invalid_credentials", errors.New("no active account found with the given credentials"))
	ErrEmailTaken         = apierr.BadRequest("email_taken", errors.New("a user with this email already exists"))
	ErrUsernameTaken      = apierr.BadRequest("username_taken", errors.New("a user with this username already exists"))
)

// RecipientUpdater re-targets an owner's reminder jobs after their
// messaging id changes.
type RecipientUpdater interface {
	Readdress(tx *gorm.DB, owner *models.User) error
}

// RegisterInput is the body of POST /users/register.
type RegisterInput struct {
	Email      string  `json:"email" binding:"required,email"`
	Username   string  `json:"username" binding:"required,max=150"`
	Password   string  `json:"password" binding:"required,min=8"`
	Phone      *string `json:"phone"`
	TelegramID *string `json:"telegram_id"`
	City       *string `json:"city"`
	Avatar     *string `json:"avatar"`
}

// ProfileInput is the body of PATCH /users/update. Absent fields
// are left unchanged; an empty string clears an optional field.
type ProfileInput struct {
	Email      *string `json:"email" binding:"omitnil,email"`
	Username   *string `json:"username" binding:"omitnil,max=150"`
	Password   *string `json:"password" binding:"omitnil,min=8"`
	Phone      *string `json:"phone"`
	TelegramID *string `json:"telegram_id"`
	City       *string `json:"city"`
	Avatar     *string `json:"avatar"`
}

// Service implements account registration, login and profile management.
type Service struct {
	db         *gorm.DB
	tokens     *TokenManager
	recipients RecipientUpdater
	now        func() time.Time
}

func NewService(db *gorm.DB, tokens *TokenManager, recipients RecipientUpdater) *Service {
	return &Service{db: db, tokens: tokens, recipients: recipients, now: time.Now}
}

// Register creates an active account with a hashed password. Field
// formats are checked by request binding.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, apierr.BadRequest("missing_field", errors.New("username is required"))
	}

	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:      email,
		Username:   username,
		Password:   hash,
		Phone:      blankToNil(in.Phone),
		TelegramID: blankToNil(in.TelegramID),
		City:       blankToNil(in.City),
		Avatar:     blankToNil(in.Avatar),
		IsActive:   true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUnique(tx, 0, email, username); err != nil {
			return err
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login checks email and password and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive || crypto.CheckPassword(user.Password, password) != nil {
		return TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return TokenPair{}, err
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Update("last_login", now).Error; err != nil {
		return TokenPair{}, fmt.Errorf("failed to record login: %w", err)
	}
	return pair, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.tokens.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", apierr.Unauthorized(err)
	}
	if _, err := s.activeUser(ctx, userID); err != nil {
		return "", err
	}
	return s.tokens.Issue(userID, TokenTypeAccess)
}

// Authenticate resolves an access token to an active user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	userID, err := s.tokens.Parse(accessToken, TokenTypeAccess)
	if err != nil {
		return nil, apierr.Unauthorized(err)
	}
	return s.activeUser(ctx, userID)
}

// UpdateProfile applies a partial update to the user's own account. A
// changed Telegram id is propagated to the user's reminder jobs.
func (s *Service) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound(errors.New("user not found"))
			}
			return fmt.Errorf("failed to load user: %w", err)
		}
		previousRecipient := user.MessagingID()

		email, username := user.Email, user.Username
		if in.Email != nil {
			email = normalizeEmail(*in.Email)
		}
		if in.Username != nil {
			username = strings.TrimSpace(*in.Username)
			if username == "" {
				return apierr.BadRequest("missing_field", errors.New("username must not be blank"))
			}
		}
		if err := ensureUnique(tx, user.ID, email, username); err != nil {
			return err
		}
		user.Email, user.Username = email, username

		if in.Password != nil {
			hash, err := crypto.HashPassword(*in.Password)
			if err != nil {
				return err
			}
			user.Password = hash
		}
		if in.Phone != nil {
			user.Phone = blankToNil(in.Phone)
		}
		if in.TelegramID != nil {
			user.TelegramID = blankToNil(in.TelegramID)
		}
		if in.City != nil {
			user.City = blankToNil(in.City)
		}
		if in.Avatar != nil {
			user.Avatar = blankToNil(in.Avatar)
		}

		// Save, not Updates, so the encryption hooks run.
		if err := tx.Save(&user).Error; err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}

		if s.recipients != nil && user.MessagingID() != previousRecipient {
			return s.recipients.Readdress(tx, &user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) activeUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.Unauthorized(errors.New("user not found"))
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil, apierr.Unauthorized(errors.New("user is inactive"))
	}
	return &user, nil
}

func ensureUnique(tx *gorm.DB, selfID uint, email, username string) error {
	var n int64
	if err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", email, selfID).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if n > 0 {
		return ErrEmailTaken
	}
	if err := tx.Model(&models.User{}).Where("username = ? AND id <> ?", username, selfID).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if n > 0 {
		return ErrUsernameTaken
	}
	return nil
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
