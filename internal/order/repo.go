package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/evocart/internal/domain"
	"github.com/Skotchmaster/evocart/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

// Summary is one row of the admin order list.
type Summary struct {
	ID         uint            `json:"order_id"`
	UserID     uint            `json:"user_id"`
	UserName   string          `json:"user_name"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Shipping   decimal.Decimal `json:"shipping"`
	Tax        decimal.Decimal `json:"tax"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	Status     string          `json:"status"`
	OrderDate  time.Time       `json:"order_date"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// CreateOnce inserts the order header and its items in one transaction,
// unless an order with the same (user, idempotency key) already exists, in
// which case that order is returned and created is false.
func (r *GormRepo) CreateOnce(ctx context.Context, o *models.Order) (out *models.Order, created bool, err error) {
	if o.IdempotencyKey == "" {
		return nil, false, fmt.Errorf("%w: missing idempotency key", domain.ErrValidation)
	}
	if len(o.Items) == 0 {
		return nil, false, fmt.Errorf("%w: order has no items", domain.ErrValidation)
	}

	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findByKey(tx, o.UserID, o.IdempotencyKey)
		if err != nil {
			return err
		}
		if existing != nil {
			out = existing
			return nil
		}

		items := o.Items
		if o.OrderDate.IsZero() {
			o.OrderDate = time.Now().UTC()
		}
		if err := tx.Omit(clause.Associations).Create(o).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = o.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}

		o.Items = items
		out, created = o, true
		return nil
	})
	if err != nil {
		o.ID = 0
		// A concurrent insert with the same key wins the unique index; hand
		// back the winner.
		if winner, rerr := findByKey(r.DB.WithContext(ctx), o.UserID, o.IdempotencyKey); rerr == nil && winner != nil {
			return winner, false, nil
		}
		return nil, false, err
	}
	return out, created, nil
}

func findByKey(db *gorm.DB, userID uint, key string) (*models.Order, error) {
	var found []models.Order
	err := db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		Limit(1).
		Find(&found).Error
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (r *GormRepo) Get(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&o, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return &o, nil
}

// GetForUser is Get restricted to the order's owner.
func (r *GormRepo) GetForUser(ctx context.Context, userID, id uint) (*models.Order, error) {
	o, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, fmt.Errorf("%w: order %d belongs to another user", domain.ErrForbidden, id)
	}
	return o, nil
}

// MarkPaid moves the caller's own order from Pending Payment to Paid.
func (r *GormRepo) MarkPaid(ctx context.Context, userID, id uint) (*models.Order, error) {
	var o models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&o, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: order %d", domain.ErrNotFound, id)
			}
			return err
		}
		if o.UserID != userID {
			return fmt.Errorf("%w: order %d belongs to another user", domain.ErrForbidden, id)
		}
		if !CanTransition(Status(o.Status), StatusPaid, ActorCustomer) {
			return fmt.Errorf("%w: order %d is %s", domain.ErrConflict, id, o.Status)
		}
		if err := tx.Model(&o).Update("status", string(StatusPaid)).Error; err != nil {
			return err
		}
		o.Status = string(StatusPaid)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateStatus changes the status under a row lock and returns the previous
// one. Requesting the current status is a conflict and writes nothing.
func (r *GormRepo) UpdateStatus(ctx context.Context, id uint, to Status, actor Actor) (*models.Order, Status, error) {
	var (
		o    models.Order
		prev Status
	)
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&o, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: order %d", domain.ErrNotFound, id)
			}
			return err
		}
		prev = Status(o.Status)
		if prev == to {
			return fmt.Errorf("%w: order %d already has status %s", domain.ErrConflict, id, to)
		}
		if !CanTransition(prev, to, actor) {
			return fmt.Errorf("%w: %s may not move order %d from %s to %s", domain.ErrConflict, actor, id, prev, to)
		}
		if err := tx.Model(&o).Update("status", string(to)).Error; err != nil {
			return err
		}
		o.Status = string(to)
		return nil
	})
	if err != nil {
		return nil, prev, err
	}
	return &o, prev, nil
}

func (r *GormRepo) ListByUser(ctx context.Context, userID uint) ([]models.Order, error) {
	var out []models.Order
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("order_date DESC, id DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListAll pages over every order, newest first, with the owner's name.
// limit <= 0 returns everything.
func (r *GormRepo) ListAll(ctx context.Context, offset, limit int) (int64, []Summary, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Order{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	q := r.DB.WithContext(ctx).
		Table("orders").
		Select("orders.id, orders.user_id, users.name AS user_name, orders.subtotal, orders.shipping, orders.tax, orders.grand_total, orders.status, orders.order_date, orders.updated_at").
		Joins("LEFT JOIN users ON users.id = orders.user_id").
		Order("orders.order_date DESC, orders.id DESC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}

	var out []Summary
	if err := q.Scan(&out).Error; err != nil {
		return 0, nil, err
	}
	return total, out, nil
}

// CancelStalePending cancels every Pending Payment order placed before the
// cutoff and returns the cancelled orders.
func (r *GormRepo) CancelStalePending(ctx context.Context, before time.Time) ([]models.Order, error) {
	var stale []models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("status = ? AND order_date < ?", string(StatusPendingPayment), before).
			Find(&stale).Error; err != nil {
			return err
		}
		if len(stale) == 0 {
			return nil
		}

		ids := make([]uint, len(stale))
		for i := range stale {
			ids[i] = stale[i].ID
			stale[i].Status = string(StatusCancelled)
		}
		return tx.Model(&models.Order{}).
			Where("id IN ? AND status = ?", ids, string(StatusPendingPayment)).
			Update("status", string(StatusCancelled)).Error
	})
	if err != nil {
		return nil, err
	}
	return stale, nil
}
