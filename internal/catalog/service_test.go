package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/evocart/internal/domain"
	"github.com/Skotchmaster/evocart/internal/models"
	"github.com/Skotchmaster/evocart/internal/testenv"
)

type fakeIndexer struct {
	mu      sync.Mutex
	indexed []uint
	deleted []uint
	prices  []string
}

func (f *fakeIndexer) IndexProduct(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, p.ID)
	f.prices = append(f.prices, p.Price.StringFixed(3))
	return nil
}

func (f *fakeIndexer) DeleteProduct(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []map[string]any
}

func (r *recordingPublisher) Publish(_ context.Context, _, _ string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event.(map[string]any))
	return nil
}

func newService(t *testing.T) (*Service, *fakeIndexer, *recordingPublisher) {
	idx := &fakeIndexer{}
	pub := &recordingPublisher{}
	return &Service{Repo: &GormRepo{DB: testenv.DB(t)}, Index: idx, Events: pub}, idx, pub
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreate_Validation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   ProductInput
	}{
		{name: "missing name", in: ProductInput{Category: "Books", Price: price("10")}},
		{name: "blank category", in: ProductInput{Name: "Atlas", Category: "  ", Price: price("10")}},
		{name: "zero price", in: ProductInput{Name: "Atlas", Category: "Books", Price: decimal.Zero}},
		{name: "negative price", in: ProductInput{Name: "Atlas", Category: "Books", Price: price("-1")}},
		{name: "price below a cent", in: ProductInput{Name: "Atlas", Category: "Books", Price: price("0.004")}},
	}

	for _, tt := range tests {
		_, err := svc.Create(ctx, tt.in)
		assert.ErrorIs(t, err, domain.ErrValidation, tt.name)
	}
}

func TestCreate_DefaultsImageIndexesAndPublishes(t *testing.T) {
	t.Parallel()

	svc, idx, pub := newService(t)

	p, err := svc.Create(context.Background(), ProductInput{Name: " Atlas ", Category: "Books", Price: price("249.999")})
	require.NoError(t, err)
	assert.Equal(t, "Atlas", p.Name)
	assert.Equal(t, PlaceholderImage, p.ImageURL)
	assert.True(t, price("250.00").Equal(p.Price))

	assert.Equal(t, []uint{p.ID}, idx.indexed)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "product_created", pub.events[0]["type"])
}

func TestCreateAndUpdate_RoundPriceToCents(t *testing.T) {
	t.Parallel()

	svc, idx, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, ProductInput{Name: "Pencil", Category: "Office", Price: price("10.005")})
	require.NoError(t, err)
	assert.Equal(t, "10.01", p.Price.String())

	upd, err := svc.Update(ctx, p.ID, ProductInput{Name: "Pencil", Category: "Office", Price: price("3.333")})
	require.NoError(t, err)
	assert.Equal(t, "3.33", upd.Price.String())

	stored, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, price("3.33").Equal(stored.Price))

	assert.Equal(t, []string{"10.010", "3.330"}, idx.prices)
}

func TestUpdate_KeepsImageWhenBlank(t *testing.T) {
	t.Parallel()

	svc, _, pub := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, ProductInput{Name: "Lamp", Category: "Home Appliances", Price: price("100"), ImageURL: "https://cdn.example/lamp.jpg"})
	require.NoError(t, err)

	upd, err := svc.Update(ctx, p.ID, ProductInput{Name: "Desk Lamp", Category: "Home Appliances", Price: price("120"), IsBestSeller: true})
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", upd.Name)
	assert.Equal(t, "https://cdn.example/lamp.jpg", upd.ImageURL)
	assert.True(t, upd.IsBestSeller)
	assert.True(t, price("120").Equal(upd.Price))
	assert.Equal(t, "product_updated", pub.events[1]["type"])

	_, err = svc.Update(ctx, 999, ProductInput{Name: "x", Category: "y", Price: price("1")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete(t *testing.T) {
	t.Parallel()

	svc, idx, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, ProductInput{Name: "Kettle", Category: "Home Appliances", Price: price("899")})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, p.ID))
	assert.Equal(t, []uint{p.ID}, idx.deleted)

	assert.ErrorIs(t, svc.Delete(ctx, p.ID), domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, 0), domain.ErrValidation)

	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFindByIDs_SkipsUnknownIDs(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, ProductInput{Name: "A", Category: "Toys", Price: price("100")})
	require.NoError(t, err)
	b, err := svc.Create(ctx, ProductInput{Name: "B", Category: "Toys", Price: price("250")})
	require.NoError(t, err)

	got, err := svc.FindByIDs(ctx, []uint{b.ID, 404, a.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, b.ID, got[1].ID)

	none, err := svc.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListAndReindex(t *testing.T) {
	t.Parallel()

	svc, idx, _ := newService(t)
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C"} {
		_, err := svc.Create(ctx, ProductInput{Name: name, Category: "Books", Price: price("10")})
		require.NoError(t, err)
	}

	total, page, err := svc.List(ctx, 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "C", page[0].Name)

	n, err := svc.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, idx.indexed, 6)
}

func TestSearch_DatabaseFallback(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)
	ctx := context.Background()

	for _, in := range []ProductInput{
		{Name: "Oak Table", Category: "Furniture", Price: price("300")},
		{Name: "Desk Lamp", Category: "Lighting", Description: "fits any table", Price: price("40")},
		{Name: "100% Cotton Throw", Category: "Textiles", Price: price("25")},
	} {
		_, err := svc.Create(ctx, in)
		require.NoError(t, err)
	}

	total, items, err := svc.Search(ctx, "TABLE", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, "Desk Lamp", items[0].Name)

	total, items, err = svc.Search(ctx, "table", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 1)

	total, _, err = svc.Search(ctx, "100%", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	total, _, err = svc.Search(ctx, "_", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
}

func TestFindByIDs_CancelledCallerDoesNotFailOthers(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)
	p, err := svc.Create(context.Background(), ProductInput{Name: "Mug", Category: "Kitchen", Price: price("100")})
	require.NoError(t, err)

	entered := make(chan struct{}, 4)
	release := make(chan struct{})
	require.NoError(t, svc.Repo.DB.Callback().Query().Before("gorm:query").Register("hold_lookup", func(*gorm.DB) {
		entered <- struct{}{}
		<-release
	}))

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.FindByIDs(ctxA, []uint{p.ID})
		errA <- err
	}()
	<-entered

	type result struct {
		items []models.Product
		err   error
	}
	resB := make(chan result, 1)
	go func() {
		items, err := svc.FindByIDs(context.Background(), []uint{p.ID})
		resB <- result{items, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller kept waiting for the shared lookup")
	}

	close(release)
	select {
	case r := <-resB:
		require.NoError(t, r.err)
		require.Len(t, r.items, 1)
		assert.Equal(t, p.ID, r.items[0].ID)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never got the lookup result")
	}
}
