package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Skotchmaster/evocart/internal/domain"
	"github.com/Skotchmaster/evocart/internal/models"
	"github.com/Skotchmaster/evocart/internal/session"
	"github.com/Skotchmaster/evocart/internal/user"
	pkg_hash "github.com/Skotchmaster/evocart/pkg/hash"
	jwthelp "github.com/Skotchmaster/evocart/pkg/jwt"
	"github.com/Skotchmaster/evocart/pkg/logging"
	authmw "github.com/Skotchmaster/evocart/pkg/middleware/auth"
	"github.com/Skotchmaster/evocart/pkg/tokens"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

type Service struct {
	Users         *user.Service
	Tokens        *TokenRepo
	Sessions      session.Store
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type LoginResult struct {
	UserID       uint
	Name         string
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	IsAdmin      bool
}

func (s *Service) Register(ctx context.Context, in user.Input) (*models.User, error) {
	u, err := s.Users.Create(ctx, in, models.RoleUser)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("user_registered", "user_id", u.ID)
	return u, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	email, err := user.NormalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	u, err := s.Users.Repo.ByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !pkg_hash.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	res, refresh, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	if err := s.Tokens.Save(ctx, &refresh); err != nil {
		return nil, err
	}

	if err := s.Sessions.Set(ctx, session.ID(u.ID), session.KeyUserName, []byte(u.Name)); err != nil {
		l.Error("session_write_failed", "user_id", u.ID, "error", err)
	}
	return res, nil
}

// Refresh rotates the refresh token and issues a new access token. The role
// is read from the user record so a demoted admin loses access on refresh.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tokens.ErrInvalidToken, err)
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", tokens.ErrInvalidToken)
	}

	u, err := s.Users.Get(ctx, uint(id))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrTokenRevoked
	}
	if err != nil {
		return nil, err
	}

	res, next, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	if err := s.Tokens.Rotate(ctx, claims.ID, refreshToken, next); err != nil {
		return nil, err
	}
	return res, nil
}

// Logout revokes the refresh token and drops the session, cart included.
func (s *Service) Logout(ctx context.Context, userID uint, refreshToken string) error {
	if refreshToken != "" {
		if err := s.Tokens.Revoke(ctx, refreshToken); err != nil {
			return err
		}
	}
	if userID == 0 {
		return nil
	}
	return s.Sessions.Destroy(ctx, session.ID(userID))
}

// SubjectOf reads the user id from a correctly signed refresh token,
// ignoring expiry. It returns 0 for anything else.
func (s *Service) SubjectOf(refreshToken string) uint {
	var claims tokens.RefreshClaims
	p := jwt.NewParser(jwt.WithoutClaimsValidation(), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := p.ParseWithClaims(refreshToken, &claims, func(*jwt.Token) (any, error) { return s.RefreshSecret, nil })
	if err != nil {
		return 0
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

func (s *Service) issue(u *models.User) (*LoginResult, models.RefreshToken, error) {
	now := time.Now()
	accessExp := now.Add(ttlOr(s.AccessTTL, DefaultAccessTTL))
	refreshExp := now.Add(ttlOr(s.RefreshTTL, DefaultRefreshTTL))
	sub := strconv.FormatUint(uint64(u.ID), 10)

	access, err := tokens.SignAccess(tokens.AccessClaims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	}, s.AccessSecret)
	if err != nil {
		return nil, models.RefreshToken{}, err
	}

	jti := jwthelp.NewJTI()
	refresh, err := tokens.SignRefresh(tokens.RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
		},
	}, s.RefreshSecret)
	if err != nil {
		return nil, models.RefreshToken{}, err
	}

	return &LoginResult{
			UserID:       u.ID,
			Name:         u.Name,
			AccessToken:  access,
			RefreshToken: refresh,
			AccessExp:    accessExp,
			RefreshExp:   refreshExp,
			IsAdmin:      u.Role == models.RoleAdmin,
		}, models.RefreshToken{
			UserID:    u.ID,
			JTI:       jti,
			Token:     jwthelp.Sha256Hex(refresh),
			ExpiresAt: refreshExp.Unix(),
		}, nil
}

func ttlOr(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}

// RefreshTokens adapts Refresh for the auto-refresh middleware.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*authmw.Refreshed, error) {
	res, err := s.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return &authmw.Refreshed{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		AccessExp:    res.AccessExp,
		RefreshExp:   res.RefreshExp,
	}, nil
}
