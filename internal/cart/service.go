package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Skotchmaster/evocart/internal/domain"
	"github.com/Skotchmaster/evocart/internal/models"
	"github.com/Skotchmaster/evocart/internal/session"
	"github.com/Skotchmaster/evocart/pkg/logging"
)

type Catalog interface {
	FindByIDs(ctx context.Context, ids []uint) ([]models.Product, error)
}

// Service keeps the cart in the session store. Every mutation is written
// through immediately; concurrent writers of one session are last-write-wins.
type Service struct {
	Sessions session.Store
	Catalog  Catalog
}

func (s *Service) Snapshot(ctx context.Context, userID uint) (Cart, error) {
	raw, err := s.Sessions.Get(ctx, session.ID(userID), session.KeyCart)
	if errors.Is(err, session.ErrMissing) {
		return Cart{}, nil
	}
	if err != nil {
		return nil, err
	}

	c := Cart{}
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	for id, q := range c {
		if q <= 0 {
			delete(c, id)
		}
	}
	return c, nil
}

func (s *Service) Add(ctx context.Context, userID, productID uint, qty int) (int, error) {
	if productID == 0 {
		return 0, fmt.Errorf("%w: invalid product id", domain.ErrValidation)
	}
	found, err := s.Catalog.FindByIDs(ctx, []uint{productID})
	if err != nil {
		return 0, err
	}
	if len(found) == 0 {
		return 0, fmt.Errorf("%w: product %d", domain.ErrNotFound, productID)
	}

	return s.mutate(ctx, userID, func(c Cart) { c.Add(productID, qty) })
}

func (s *Service) SetQuantity(ctx context.Context, userID, productID uint, qty int) (int, error) {
	if productID == 0 {
		return 0, fmt.Errorf("%w: invalid product id", domain.ErrValidation)
	}
	return s.mutate(ctx, userID, func(c Cart) { c.SetQuantity(productID, qty) })
}

func (s *Service) Remove(ctx context.Context, userID, productID uint) (int, error) {
	if productID == 0 {
		return 0, fmt.Errorf("%w: invalid product id", domain.ErrValidation)
	}
	return s.mutate(ctx, userID, func(c Cart) { c.Remove(productID) })
}

// BuyNow replaces the whole cart with a single line.
func (s *Service) BuyNow(ctx context.Context, userID, productID uint, qty int) error {
	if productID == 0 {
		return fmt.Errorf("%w: invalid product id", domain.ErrValidation)
	}
	found, err := s.Catalog.FindByIDs(ctx, []uint{productID})
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return fmt.Errorf("%w: product %d", domain.ErrNotFound, productID)
	}

	c := Cart{}
	c.Add(productID, qty)
	if err := s.save(ctx, userID, c); err != nil {
		return err
	}
	return s.dropCheckout(ctx, userID)
}

// Clear empties the cart and abandons any checkout in progress.
func (s *Service) Clear(ctx context.Context, userID uint) error {
	return s.Sessions.Delete(ctx, session.ID(userID), session.KeyCart, session.KeyCurrentOrder, session.KeyCheckoutKey)
}

// Reconcile prices the cart against the live catalog with one batched
// lookup and removes ids that no longer exist from the stored cart.
func (s *Service) Reconcile(ctx context.Context, userID uint) (Reconciled, error) {
	c, err := s.Snapshot(ctx, userID)
	if err != nil {
		return Reconciled{}, err
	}

	products, err := s.Catalog.FindByIDs(ctx, c.IDs())
	if err != nil {
		return Reconciled{}, err
	}

	healed, res := Reconcile(c, products)
	if len(res.Dropped) > 0 {
		logging.FromContext(ctx).Info("cart_stale_items_dropped", "user_id", userID, "product_ids", res.Dropped)
		if err := s.save(ctx, userID, healed); err != nil {
			return Reconciled{}, err
		}
	}
	return res, nil
}

func (s *Service) mutate(ctx context.Context, userID uint, fn func(Cart)) (int, error) {
	c, err := s.Snapshot(ctx, userID)
	if err != nil {
		return 0, err
	}
	fn(c)
	if err := s.save(ctx, userID, c); err != nil {
		return 0, err
	}
	if err := s.dropCheckout(ctx, userID); err != nil {
		return 0, err
	}
	return c.Count(), nil
}

func (s *Service) save(ctx context.Context, userID uint, c Cart) error {
	sid := session.ID(userID)
	if len(c) == 0 {
		return s.Sessions.Delete(ctx, sid, session.KeyCart)
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	return s.Sessions.Set(ctx, sid, session.KeyCart, raw)
}

// dropCheckout forgets the pending checkout: a changed cart needs a new order.
func (s *Service) dropCheckout(ctx context.Context, userID uint) error {
	return s.Sessions.Delete(ctx, session.ID(userID), session.KeyCurrentOrder, session.KeyCheckoutKey)
}
