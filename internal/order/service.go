package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/evocart/internal/cart"
	"github.com/Skotchmaster/evocart/internal/domain"
	"github.com/Skotchmaster/evocart/internal/events"
	"github.com/Skotchmaster/evocart/internal/models"
	"github.com/Skotchmaster/evocart/internal/session"
	"github.com/Skotchmaster/evocart/pkg/logging"
)

type CartReconciler interface {
	Reconcile(ctx context.Context, userID uint) (cart.Reconciled, error)
}

type Service struct {
	Repo     *GormRepo
	Carts    CartReconciler
	Sessions session.Store
	Pricing  Pricing
	Events   events.Publisher
	// Notify receives every order event directly. Leave nil when a Kafka
	// consumer already feeds the same sink.
	Notify events.Sink
	Now    func() time.Time
}

// View is an order as the customer sees it in the tracker.
type View struct {
	models.Order
	Progress int `json:"progress"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// BeginCheckout returns the order bound to the caller's checkout, creating
// it from the reconciled cart the first time. Reloading the checkout keeps
// returning the same order until it is paid or the cart changes.
func (s *Service) BeginCheckout(ctx context.Context, userID uint) (*models.Order, error) {
	l := logging.FromContext(ctx)
	sid := session.ID(userID)

	if o, err := s.resume(ctx, userID); err != nil || o != nil {
		return o, err
	}

	res, err := s.Carts.Reconcile(ctx, userID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		draft, err := Build(userID, res.Lines, s.Pricing)
		if err != nil {
			return nil, err
		}
		key, err := s.claimKey(ctx, sid)
		if err != nil {
			return nil, err
		}
		draft.IdempotencyKey = key
		draft.OrderDate = s.now()

		o, created, err := s.Repo.CreateOnce(ctx, draft)
		if err != nil {
			return nil, err
		}
		if Status(o.Status) != StatusPendingPayment {
			// The key belongs to an order that was already settled; start over.
			if err := s.Sessions.Delete(ctx, sid, session.KeyCheckoutKey); err != nil {
				return nil, err
			}
			continue
		}

		if err := s.Sessions.Set(ctx, sid, session.KeyCurrentOrder, []byte(strconv.FormatUint(uint64(o.ID), 10))); err != nil {
			return nil, err
		}
		if created {
			l.Info("order_created", "order_id", o.ID, "user_id", userID, "grand_total", o.GrandTotal.StringFixed(2))
			s.emit(ctx, "order_created", o, map[string]any{"grand_total": o.GrandTotal.StringFixed(2)})
		}
		return o, nil
	}
	return nil, fmt.Errorf("%w: checkout could not be started", domain.ErrConflict)
}

// resume loads the order named by the session marker. A marker that points
// at a missing, foreign or settled order is dropped together with its key.
func (s *Service) resume(ctx context.Context, userID uint) (*models.Order, error) {
	sid := session.ID(userID)
	raw, err := s.Sessions.Get(ctx, sid, session.KeyCurrentOrder)
	if errors.Is(err, session.ErrMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if id, perr := strconv.ParseUint(string(raw), 10, 64); perr == nil {
		o, err := s.Repo.GetForUser(ctx, userID, uint(id))
		switch {
		case err == nil && Status(o.Status) == StatusPendingPayment:
			return o, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrForbidden):
			return nil, err
		}
	}

	logging.FromContext(ctx).Info("checkout_marker_dropped", "user_id", userID, "marker", string(raw))
	return nil, s.Sessions.Delete(ctx, sid, session.KeyCurrentOrder, session.KeyCheckoutKey)
}

// claimKey returns the session's checkout key, creating it atomically so
// concurrent checkouts of one session agree on a single key.
func (s *Service) claimKey(ctx context.Context, sid string) (string, error) {
	fresh := uuid.NewString()
	ok, err := s.Sessions.SetNX(ctx, sid, session.KeyCheckoutKey, []byte(fresh))
	if err != nil {
		return "", err
	}
	if ok {
		return fresh, nil
	}
	raw, err := s.Sessions.Get(ctx, sid, session.KeyCheckoutKey)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// CompletePayment records the mocked payment of the caller's order and ends
// the checkout: the cart and the checkout marker are removed.
func (s *Service) CompletePayment(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	if orderID == 0 {
		return nil, fmt.Errorf("%w: invalid order id", domain.ErrValidation)
	}

	o, err := s.Repo.MarkPaid(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.Sessions.Delete(ctx, session.ID(userID), session.KeyCart, session.KeyCurrentOrder, session.KeyCheckoutKey); err != nil {
		// The order is paid either way; a stale marker is dropped on the next checkout.
		logging.FromContext(ctx).Error("checkout_session_cleanup_failed", "order_id", o.ID, "error", err)
	}

	s.emit(ctx, "order_paid", o, nil)
	return o, nil
}

// AdminSetStatus forces an order into one of the admin-settable statuses.
func (s *Service) AdminSetStatus(ctx context.Context, orderID uint, raw string) (*models.Order, error) {
	if orderID == 0 {
		return nil, fmt.Errorf("%w: invalid order id", domain.ErrValidation)
	}
	to, err := ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	if !to.AdminSettable() {
		return nil, fmt.Errorf("%w: %s cannot be set by an admin", domain.ErrValidation, to)
	}

	o, prev, err := s.Repo.UpdateStatus(ctx, orderID, to, ActorAdmin)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, "order_status_changed", o, map[string]any{"from": string(prev), "to": string(to)})
	return o, nil
}

// ExpireStale cancels Pending Payment orders older than ttl.
func (s *Service) ExpireStale(ctx context.Context, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		return 0, nil
	}
	stale, err := s.Repo.CancelStalePending(ctx, s.now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	for i := range stale {
		s.emit(ctx, "order_expired", &stale[i], nil)
	}
	return len(stale), nil
}

func (s *Service) ListForUser(ctx context.Context, userID uint) ([]View, error) {
	orders, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]View, len(orders))
	for i, o := range orders {
		out[i] = View{Order: o, Progress: Status(o.Status).Progress()}
	}
	return out, nil
}

// Detail returns the order with its items; only the owner may read it.
func (s *Service) Detail(ctx context.Context, userID, orderID uint) (*View, error) {
	if orderID == 0 {
		return nil, fmt.Errorf("%w: invalid order id", domain.ErrValidation)
	}
	o, err := s.Repo.GetForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	return &View{Order: *o, Progress: Status(o.Status).Progress()}, nil
}

// AdminDetail is Detail without the ownership check.
func (s *Service) AdminDetail(ctx context.Context, orderID uint) (*View, error) {
	if orderID == 0 {
		return nil, fmt.Errorf("%w: invalid order id", domain.ErrValidation)
	}
	o, err := s.Repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &View{Order: *o, Progress: Status(o.Status).Progress()}, nil
}

func (s *Service) ListAll(ctx context.Context, offset, limit int) (int64, []Summary, error) {
	return s.Repo.ListAll(ctx, offset, limit)
}

func (s *Service) emit(ctx context.Context, typ string, o *models.Order, extra map[string]any) {
	event := map[string]any{
		"type":    typ,
		"orderID": o.ID,
		"userID":  o.UserID,
		"status":  o.Status,
		"ts":      s.now().Format(time.RFC3339),
	}
	for k, v := range extra {
		event[k] = v
	}

	l := logging.FromContext(ctx)
	events.Emit(ctx, s.Events, l, events.TopicOrders, strconv.FormatUint(uint64(o.ID), 10), event)

	if s.Notify != nil {
		payload, err := json.Marshal(event)
		if err != nil {
			l.Error("order_event_encode_failed", "type", typ, "error", err)
			return
		}
		s.Notify.Broadcast(payload)
	}
}
