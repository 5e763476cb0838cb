package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/Skotchmaster/evocart/internal/domain"
	"github.com/Skotchmaster/evocart/internal/models"
	pkg_hash "github.com/Skotchmaster/evocart/pkg/hash"
	"github.com/Skotchmaster/evocart/pkg/logging"
)

const MinPasswordLen = 6

type Input struct {
	Name     string `json:"name"     form:"name"`
	Email    string `json:"email"    form:"email"`
	Password string `json:"password" form:"password"`
}

func NormalizeEmail(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", fmt.Errorf("%w: invalid email address", domain.ErrValidation)
	}
	return s, nil
}

func (in *Input) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return err
	}
	in.Email = email
	if len(in.Password) < MinPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, MinPasswordLen)
	}
	return nil
}

type Service struct {
	Repo *GormRepo
}

// Create registers a user with the given role.
func (s *Service) Create(ctx context.Context, in Input, role string) (*models.User, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if role != models.RoleAdmin {
		role = models.RoleUser
	}

	hash, err := pkg_hash.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{Name: in.Name, Email: in.Email, PasswordHash: hash, Role: role}
	if err := s.Repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.User, error) {
	return s.Repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	return s.Repo.List(ctx)
}

func (s *Service) UpdateEmail(ctx context.Context, id uint, email string) (*models.User, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: invalid user id", domain.ErrValidation)
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	return s.Repo.UpdateEmail(ctx, id, email)
}

// Delete removes a user; an admin cannot delete their own account.
func (s *Service) Delete(ctx context.Context, actorID, id uint) error {
	if id == 0 {
		return fmt.Errorf("%w: invalid user id", domain.ErrValidation)
	}
	if actorID == id {
		return fmt.Errorf("%w: cannot delete your own account", domain.ErrForbidden)
	}
	return s.Repo.Delete(ctx, id)
}

// SeedAdmin creates the bootstrap admin once. An existing account with the
// same email is left untouched.
func (s *Service) SeedAdmin(ctx context.Context, email, password string) (created bool, err error) {
	l := logging.FromContext(ctx).With("svc", "user.seed_admin")
	if email == "" || password == "" {
		l.Info("admin_seed_skipped", "reason", "no credentials configured")
		return false, nil
	}

	_, err = s.Create(ctx, Input{Name: "Administrator", Email: email, Password: password}, models.RoleAdmin)
	switch {
	case err == nil:
		l.Info("admin_seeded", "email", email)
		return true, nil
	case errors.Is(err, domain.ErrConflict):
		return false, nil
	default:
		return false, err
	}
}
