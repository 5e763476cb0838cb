package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/evocart/internal/cart"
	"github.com/Skotchmaster/evocart/internal/catalog"
	"github.com/Skotchmaster/evocart/internal/domain"
	"github.com/Skotchmaster/evocart/internal/models"
	"github.com/Skotchmaster/evocart/internal/session"
	"github.com/Skotchmaster/evocart/internal/testenv"
)

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (r *recordingPublisher) Publish(_ context.Context, _, _ string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, event.(map[string]any)["type"].(string))
	return nil
}

func (r *recordingPublisher) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}

type recordingSink struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (r *recordingSink) Broadcast(p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
}

type fixture struct {
	svc   *Service
	carts *cart.Service
	db    *gorm.DB
	store session.Store
	pub   *recordingPublisher
	sink  *recordingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testenv.DB(t)
	store, _ := testenv.Sessions(t)
	carts := &cart.Service{Sessions: store, Catalog: &catalog.Service{Repo: &catalog.GormRepo{DB: db}}}
	pub := &recordingPublisher{}
	sink := &recordingSink{}

	svc := &Service{
		Repo:     &GormRepo{DB: db},
		Carts:    carts,
		Sessions: store,
		Pricing:  Pricing{TaxRate: dec("0.18"), Shipping: dec("500.00")},
		Events:   pub,
		Notify:   sink,
	}
	return &fixture{svc: svc, carts: carts, db: db, store: store, pub: pub, sink: sink}
}

func (f *fixture) product(t *testing.T, name, price string) models.Product {
	t.Helper()
	p := models.Product{Name: name, Category: "home", Price: dec(price)}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

// fill puts the reference cart {A: 2, B: 1} into the user's session.
func (f *fixture) fill(t *testing.T, userID uint) (models.Product, models.Product) {
	t.Helper()
	ctx := context.Background()
	a := f.product(t, "Mug", "100.00")
	b := f.product(t, "Lamp", "250.00")
	_, err := f.carts.Add(ctx, userID, a.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.Add(ctx, userID, b.ID, 1)
	require.NoError(t, err)
	return a, b
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func TestBeginCheckout_ReferenceTotals(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.fill(t, 1)

	o, err := f.svc.BeginCheckout(ctx, 1)
	require.NoError(t, err)

	stored, err := f.svc.Repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "450.00", stored.Subtotal.StringFixed(2))
	assert.Equal(t, "500.00", stored.Shipping.StringFixed(2))
	assert.Equal(t, "81.00", stored.Tax.StringFixed(2))
	assert.Equal(t, "1031.00", stored.GrandTotal.StringFixed(2))
	assert.Equal(t, string(StatusPendingPayment), stored.Status)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, []string{"order_created"}, f.pub.seen())
}

func TestBeginCheckout_IsIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.fill(t, 1)

	first, err := f.svc.BeginCheckout(ctx, 1)
	require.NoError(t, err)
	second, err := f.svc.BeginCheckout(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(1), f.count(t, &models.Order{}))
	assert.Equal(t, int64(2), f.count(t, &models.OrderItem{}))
	assert.Equal(t, []string{"order_created"}, f.pub.seen())
}

func TestBeginCheckout_ConcurrentSubmissions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.fill(t, 1)

	const n = 8
	ids := make([]uint, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o, err := f.svc.BeginCheckout(ctx, 1)
			errs[i] = err
			if err == nil {
				ids[i] = o.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, int64(1), f.count(t, &models.Order{}))
}

func TestBeginCheckout_EmptyCart(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.BeginCheckout(context.Background(), 1)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, f.count(t, &models.Order{}))
}

func TestBeginCheckout_IsAtomic(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.fill(t, 1)

	err := f.db.Callback().Create().Before("gorm:create").Register("fail_items", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "order_items" {
			_ = tx.AddError(errors.New("simulated item insert failure"))
		}
	})
	require.NoError(t, err)

	_, err = f.svc.BeginCheckout(ctx, 1)
	require.Error(t, err)

	assert.Zero(t, f.count(t, &models.Order{}))
	assert.Zero(t, f.count(t, &models.OrderItem{}))
	_, err = f.store.Get(ctx, session.ID(1), session.KeyCurrentOrder)
	assert.ErrorIs(t, err, session.ErrMissing)
}

func TestBeginCheckout_CartChangeStartsNewOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.fill(t, 1)

	first, err := f.svc.BeginCheckout(ctx, 1)
	require.NoError(t, err)

	_, err = f.carts.SetQuantity(ctx, 1, a.ID, 3)
	require.NoError(t, err)

	second, err := f.svc.BeginCheckout(ctx, 1)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "550.00", second.Subtotal.StringFixed(2))
}

func TestCompletePayment(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.fill(t, 1)

	o, err := f.svc.BeginCheckout(ctx, 1)
	require.NoError(t, err)

	_, err = f.svc.CompletePayment(ctx, 2, o.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)
	stored, err := f.svc.Repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusPendingPayment), stored.Status)

	_, err = f.svc.CompletePayment(ctx, 1, 9999)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.CompletePayment(ctx, 1, 0)
	require.ErrorIs(t, err, domain.ErrValidation)

	paid, err := f.svc.CompletePayment(ctx, 1, o.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusPaid), paid.Status)

	for _, key := range []string{session.KeyCart, session.KeyCurrentOrder, session.KeyCheckoutKey} {
		_, err := f.store.Get(ctx, session.ID(1), key)
		assert.ErrorIs(t, err, session.ErrMissing, key)
	}

	_, err = f.svc.CompletePayment(ctx, 1, o.ID)
	require.ErrorIs(t, err, domain.ErrConflict)

	assert.Equal(t, []string{"order_created", "order_paid"}, f.pub.seen())
}

func TestAdminSetStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.fill(t, 1)

	o, err := f.svc.BeginCheckout(ctx, 1)
	require.NoError(t, err)
	_, err = f.svc.CompletePayment(ctx, 1, o.ID)
	require.NoError(t, err)

	_, err = f.svc.AdminSetStatus(ctx, o.ID, "Shipped")
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.AdminSetStatus(ctx, o.ID, "Paid")
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.AdminSetStatus(ctx, 9999, "Processing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	updated, err := f.svc.AdminSetStatus(ctx, o.ID, "Processing")
	require.NoError(t, err)
	assert.Equal(t, string(StatusProcessing), updated.Status)

	before, err := f.svc.Repo.Get(ctx, o.ID)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	_, err = f.svc.AdminSetStatus(ctx, o.ID, "Processing")
	require.ErrorIs(t, err, domain.ErrConflict)

	after, err := f.svc.Repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt), "no-op update must not write")
	assert.Equal(t, string(StatusProcessing), after.Status)
}

func TestAdminSetStatus_OverridesOrdering(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.fill(t, 1)

	o, err := f.svc.BeginCheckout(ctx, 1)
	require.NoError(t, err)

	_, err = f.svc.AdminSetStatus(ctx, o.ID, "Delivered")
	require.NoError(t, err)
	_, err = f.svc.AdminSetStatus(ctx, o.ID, "Processing")
	require.NoError(t, err)

	stored, err := f.svc.Repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusProcessing), stored.Status)

	f.sink.mu.Lock()
	defer f.sink.mu.Unlock()
	require.Len(t, f.sink.payloads, 3)
	assert.Contains(t, string(f.sink.payloads[2]), `"to":"Processing"`)
}

func TestListForUserAndDetail(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.fill(t, 1)

	o, err := f.svc.BeginCheckout(ctx, 1)
	require.NoError(t, err)

	views, err := f.svc.ListForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 10, views[0].Progress)

	none, err := f.svc.ListForUser(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, none)

	d, err := f.svc.Detail(ctx, 1, o.ID)
	require.NoError(t, err)
	assert.Len(t, d.Items, 2)

	_, err = f.svc.Detail(ctx, 2, o.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestListAll_IncludesOwnerName(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	u := models.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, f.db.Create(&u).Error)
	f.fill(t, u.ID)
	_, err := f.svc.BeginCheckout(ctx, u.ID)
	require.NoError(t, err)

	total, rows, err := f.svc.ListAll(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ada", rows[0].UserName)
	assert.Equal(t, "1031.00", rows[0].GrandTotal.StringFixed(2))
}
