package user

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/evocart/internal/domain"
	"github.com/Skotchmaster/evocart/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

// Create inserts u unless its email is taken.
func (r *GormRepo) Create(ctx context.Context, u *models.User) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := emailTaken(tx, u.Email, 0)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: email %s already registered", domain.ErrConflict, u.Email)
		}
		return tx.Create(u).Error
	})
	return translate(err, u.Email)
}

func (r *GormRepo) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, email)
		}
		return nil, err
	}
	return &u, nil
}

func (r *GormRepo) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return &u, nil
}

func (r *GormRepo) List(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepo) UpdateEmail(ctx context.Context, id uint, email string) (*models.User, error) {
	var u models.User
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&u, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: user %d", domain.ErrNotFound, id)
			}
			return err
		}
		taken, err := emailTaken(tx, email, id)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: email %s already registered", domain.ErrConflict, email)
		}
		if err := tx.Model(&u).Update("email", email).Error; err != nil {
			return err
		}
		u.Email = email
		return nil
	})
	if err := translate(err, email); err != nil {
		return nil, err
	}
	return &u, nil
}

// Delete removes the user together with their refresh tokens.
func (r *GormRepo) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: user %d", domain.ErrNotFound, id)
		}
		return nil
	})
}

func emailTaken(tx *gorm.DB, email string, except uint) (bool, error) {
	var n int64
	q := tx.Model(&models.User{}).Where("email = ?", email)
	if except != 0 {
		q = q.Where("id <> ?", except)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func translate(err error, email string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: email %s already registered", domain.ErrConflict, email)
	}
	return err
}
