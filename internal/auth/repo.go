package auth

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/evocart/internal/models"
	jwthelp "github.com/Skotchmaster/evocart/pkg/jwt"
)

var ErrTokenRevoked = errors.New("refresh token expired or revoked")

// TokenRepo stores refresh tokens by hash; the raw token never hits the DB.
type TokenRepo struct {
	DB *gorm.DB
}

func (r *TokenRepo) Save(ctx context.Context, t *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

// Rotate revokes the presented token and stores its replacement in one
// transaction. A token can be rotated only once.
func (r *TokenRepo) Rotate(ctx context.Context, oldJTI, oldToken string, next models.RefreshToken) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.RefreshToken
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("jti = ?", oldJTI).First(&cur).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTokenRevoked
		}
		if err != nil {
			return err
		}
		if cur.Revoked || cur.ExpiresAt < time.Now().Unix() || cur.Token != jwthelp.Sha256Hex(oldToken) {
			return ErrTokenRevoked
		}

		if err := tx.Model(&cur).Update("revoked", true).Error; err != nil {
			return err
		}
		return tx.Create(&next).Error
	})
}

func (r *TokenRepo) Revoke(ctx context.Context, token string) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", jwthelp.Sha256Hex(token)).
		Update("revoked", true).Error
}
