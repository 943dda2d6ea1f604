package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"
)

func (s *Store) CreateBrand(ctx context.Context, in BrandInput) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return 0, fmt.Errorf("%w: brand name is required", ErrValidation)
	}

	now := time.Now().UTC()
	brand := &Brand{
		Name:           name,
		Country:        in.Country,
		Description:    in.Description,
		MarketPosition: in.MarketPosition,
		IsPremium:      in.IsPremium,
		LogoURL:        in.LogoURL,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := db.NewInsert().Model(brand).Exec(ctx); err != nil {
		return 0, &StorageError{Op: "create brand", Err: err}
	}
	return brand.ID, nil
}

// Brands returns one brand when id is set, otherwise all ordered by name.
func (s *Store) Brands(ctx context.Context, id *int64) ([]Brand, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	var brands []Brand
	q := db.NewSelect().Model(&brands)
	if id != nil {
		q = q.Where("b.id = ?", *id)
	} else {
		q = q.OrderExpr("b.brand_name")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, &StorageError{Op: "list brands", Err: err}
	}
	return brands, nil
}

func (s *Store) UpdateBrand(ctx context.Context, id int64, upd BrandUpdate) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	q := db.NewUpdate().Model((*Brand)(nil)).Where("id = ?", id)
	fields := 0
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return fmt.Errorf("%w: brand name cannot be empty", ErrValidation)
		}
		q = q.Set("brand_name = ?", name)
		fields++
	}
	if upd.Country != nil {
		q = q.Set("country_of_origin = ?", *upd.Country)
		fields++
	}
	if upd.Description != nil {
		q = q.Set("description = ?", *upd.Description)
		fields++
	}
	if upd.MarketPosition != nil {
		q = q.Set("market_position = ?", *upd.MarketPosition)
		fields++
	}
	if upd.IsPremium != nil {
		q = q.Set("is_premium = ?", *upd.IsPremium)
		fields++
	}
	if upd.LogoURL != nil {
		q = q.Set("logo_url = ?", *upd.LogoURL)
		fields++
	}
	if fields == 0 {
		return nil
	}
	q = q.Set("updated_at = ?", time.Now().UTC())

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := q.Exec(ctx); err != nil {
		return &StorageError{Op: "update brand", Err: err}
	}
	return nil
}

func (s *Store) DeleteBrand(ctx context.Context, id int64) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := db.NewDelete().Model((*Brand)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return &StorageError{Op: "delete brand", Err: err}
	}
	return nil
}
