package catalog

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/Skotchmaster/evocart/internal/domain"
	"github.com/Skotchmaster/evocart/internal/events"
	"github.com/Skotchmaster/evocart/internal/models"
	"github.com/Skotchmaster/evocart/pkg/logging"
)

const PlaceholderImage = "uploads/placeholder.jpg"

const lookupTimeout = 5 * time.Second

type Indexer interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
}

type ProductInput struct {
	Name             string          `json:"name"               form:"name"`
	Category         string          `json:"category"           form:"category"`
	Description      string          `json:"description"        form:"description"`
	Price            decimal.Decimal `json:"price"              form:"price"`
	ImageURL         string          `json:"image_url"          form:"image_url"`
	IsExclusiveOffer bool            `json:"is_exclusive_offer" form:"is_exclusive_offer"`
	IsBestSeller     bool            `json:"is_best_seller"     form:"is_best_seller"`
}

func (in *ProductInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)

	in.Price = in.Price.Round(2)
	if in.Name == "" || in.Category == "" || !in.Price.IsPositive() {
		return fmt.Errorf("%w: name, category and a positive price are required", domain.ErrValidation)
	}
	return nil
}

type Service struct {
	Repo    *GormRepo
	Index   Indexer
	Events  events.Publisher
	lookups singleflight.Group
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Product, error) {
	return s.Repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.List(ctx, offset, limit)
}

func (s *Service) ListAll(ctx context.Context) ([]models.Product, error) {
	return s.Repo.ListAll(ctx)
}

// FindByIDs collapses concurrent lookups of the same id set into one query.
func (s *Service) FindByIDs(ctx context.Context, ids []uint) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sorted := slices.Clone(ids)
	slices.Sort(sorted)

	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}

	// The shared query outlives any single caller; each caller still stops
	// waiting when its own context ends.
	shared := context.WithoutCancel(ctx)
	ch := s.lookups.DoChan(strings.Join(parts, ","), func() (any, error) {
		qctx, cancel := context.WithTimeout(shared, lookupTimeout)
		defer cancel()
		return s.Repo.FindByIDs(qctx, sorted)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]models.Product)), nil
	}
}

func (s *Service) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if in.ImageURL == "" {
		in.ImageURL = PlaceholderImage
	}

	p := &models.Product{
		Name:             in.Name,
		Category:         in.Category,
		Description:      in.Description,
		Price:            in.Price,
		ImageURL:         in.ImageURL,
		IsExclusiveOffer: in.IsExclusiveOffer,
		IsBestSeller:     in.IsBestSeller,
	}
	if err := s.Repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.reindex(ctx, p)
	s.emit(ctx, "product_created", p.ID, p.Name)
	return p, nil
}

// Update overwrites every field; a blank image keeps the stored one.
func (s *Service) Update(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: invalid product id", domain.ErrValidation)
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	fields := map[string]any{
		"name":               in.Name,
		"category":           in.Category,
		"description":        in.Description,
		"price":              in.Price,
		"is_exclusive_offer": in.IsExclusiveOffer,
		"is_best_seller":     in.IsBestSeller,
	}
	if in.ImageURL != "" {
		fields["image_url"] = in.ImageURL
	}

	p, err := s.Repo.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	s.reindex(ctx, p)
	s.emit(ctx, "product_updated", p.ID, p.Name)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	if id == 0 {
		return fmt.Errorf("%w: invalid product id", domain.ErrValidation)
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}

	if s.Index != nil {
		if err := s.Index.DeleteProduct(ctx, id); err != nil {
			logging.FromContext(ctx).Error("search_delete_failed", "product_id", id, "error", err)
		}
	}
	s.emit(ctx, "product_deleted", id, "")
	return nil
}

func (s *Service) Search(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.Search(ctx, q, offset, limit)
}

// Reindex pushes the whole catalog into the search index.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if s.Index == nil {
		return 0, nil
	}
	items, err := s.Repo.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	for i := range items {
		if err := s.Index.IndexProduct(ctx, &items[i]); err != nil {
			return i, err
		}
	}
	return len(items), nil
}

func (s *Service) reindex(ctx context.Context, p *models.Product) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexProduct(ctx, p); err != nil {
		logging.FromContext(ctx).Error("search_index_failed", "product_id", p.ID, "error", err)
	}
}

func (s *Service) emit(ctx context.Context, typ string, id uint, name string) {
	event := map[string]any{"type": typ, "productID": id}
	if name != "" {
		event["name"] = name
	}
	events.Emit(ctx, s.Events, logging.FromContext(ctx), events.TopicProducts, strconv.FormatUint(uint64(id), 10), event)
}
