// Package account manages learner profiles, passwords and sessions.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"
)

const (
	maxDisplayName = 80
	minPassword    = 8
	maxPassword    = 72 // bcrypt input limit in bytes
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTooManyAttempts    = errors.New("too many failed logins")
)

// User is a registered learner or administrator.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Premium      bool      `json:"premium"`
	Admin        bool      `json:"admin"`
	Language     string    `json:"language"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store persists users.
type Store interface {
	Create(ctx context.Context, u User) error
	Get(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Update(ctx context.Context, u User) error
	List(ctx context.Context) ([]User, error)
}

// RegisterInput is the payload for creating an account.
type RegisterInput struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"pwdbytes"`
	DisplayName string `json:"display_name" validate:"displayname"`
	Language    string `json:"language" validate:"omitempty,oneof=bn en"`
}

// ProfileUpdate changes the fields that are set.
type ProfileUpdate struct {
	DisplayName *string `json:"display_name" validate:"omitempty,displayname"`
	Language    *string `json:"language" validate:"omitempty,oneof=bn en"`
}

// Service implements account operations on top of a Store.
type Service struct {
	store      Store
	cost       int
	adminEmail string
	throttle   LoginThrottle
}

// NewService creates an account service. Registering adminEmail grants the admin role.
func NewService(store Store, bcryptCost int, adminEmail string) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		store:      store,
		cost:       bcryptCost,
		adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)),
		throttle:   NoThrottle{},
	}
}

// SetThrottle limits failed logins per email.
func (s *Service) SetThrottle(t LoginThrottle) {
	s.throttle = t
}

// Register creates a new account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(in); err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	lang := in.Language
	if lang == "" {
		lang = "bn"
	}
	now := time.Now().UTC()
	u := User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		DisplayName:  cleanName(in.DisplayName),
		PasswordHash: string(hash),
		Admin:        s.adminEmail != "" && in.Email == s.adminEmail,
		Language:     lang,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, u); err != nil {
		return User{}, err
	}

	slog.Info("user registered", "user_id", u.ID, "admin", u.Admin)
	return u, nil
}

// Authenticate returns the user whose credentials match. Emails locked out by
// the login throttle get ErrTooManyAttempts without a password check.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	ok, err := s.throttle.Allow(ctx, email)
	if err != nil {
		return User{}, err
	}
	if !ok {
		slog.Warn("login throttled", "email_len", len(email))
		return User{}, ErrTooManyAttempts
	}

	u, err := s.store.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		if ferr := s.throttle.Fail(ctx, email); ferr != nil {
			slog.Warn("failed to record login failure", "error", ferr)
		}
		return User{}, ErrInvalidCredentials
	}

	if err := s.throttle.Reset(ctx, email); err != nil {
		slog.Warn("failed to reset login failures", "error", err)
	}
	return u, nil
}

// Get returns a user by ID.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.store.Get(ctx, id)
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.store.List(ctx)
}

// UpdateProfile applies a profile update.
func (s *Service) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (User, error) {
	if err := validateStruct(upd); err != nil {
		return User{}, err
	}
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if upd.DisplayName != nil {
		u.DisplayName = cleanName(*upd.DisplayName)
	}
	if upd.Language != nil {
		u.Language = *upd.Language
	}
	u.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, id, current, next string) error {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	if err := validateStruct(struct {
		Password string `json:"password" validate:"pwdbytes"`
	}{next}); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	u.UpdatedAt = time.Now().UTC()
	return s.store.Update(ctx, u)
}

// SetPremium grants or revokes premium access.
func (s *Service) SetPremium(ctx context.Context, id string, premium bool) (User, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	u.Premium = premium
	u.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, u); err != nil {
		return User{}, err
	}
	slog.Info("premium changed", "user_id", id, "premium", premium)
	return u, nil
}

func cleanName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
