package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

func validateProductFields(discount *int, stock *int, price *float64, ageFrom, ageTo *int) error {
	if discount != nil && (*discount < 0 || *discount > 100) {
		return fmt.Errorf("%w: discount_percent must be between 0 and 100", ErrValidation)
	}
	if stock != nil && *stock < 0 {
		return fmt.Errorf("%w: stock_quantity cannot be negative", ErrValidation)
	}
	if price != nil && *price < 0 {
		return fmt.Errorf("%w: price_per_unit cannot be negative", ErrValidation)
	}
	if ageFrom != nil && ageTo != nil && *ageFrom > *ageTo {
		return fmt.Errorf("%w: age_range_from cannot exceed age_range_to", ErrValidation)
	}
	return nil
}

func (s *Store) CreateProduct(ctx context.Context, in ProductInput) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return 0, fmt.Errorf("%w: product name is required", ErrValidation)
	}
	if err := validateProductFields(&in.DiscountPercent, &in.StockQuantity, in.PricePerUnit, in.AgeRangeFrom, in.AgeRangeTo); err != nil {
		return 0, err
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}

	now := time.Now().UTC()
	product := &Product{
		Name:            name,
		SKU:             in.SKU,
		CategoryID:      in.CategoryID,
		BrandID:         in.BrandID,
		PackageSizeML:   in.PackageSizeML,
		AgeRangeFrom:    in.AgeRangeFrom,
		AgeRangeTo:      in.AgeRangeTo,
		PricePerUnit:    in.PricePerUnit,
		DiscountPercent: in.DiscountPercent,
		StockQuantity:   in.StockQuantity,
		Description:     in.Description,
		MainIngredients: in.MainIngredients,
		ImageURL:        in.ImageURL,
		IsActive:        active,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := db.NewInsert().Model(product).Exec(ctx); err != nil {
		return 0, &StorageError{Op: "create product", Err: err}
	}
	return product.ID, nil
}

// Products lists products with category and brand names joined in, ordered
// by product name.
func (s *Store) Products(ctx context.Context, f ProductFilter) ([]ProductRow, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	var rows []ProductRow
	q := db.NewSelect().
		TableExpr("milk_products AS p").
		ColumnExpr("p.*").
		ColumnExpr("c.category_name").
		ColumnExpr("b.brand_name").
		Join("LEFT JOIN product_categories AS c ON p.category_id = c.id").
		Join("LEFT JOIN milk_brands AS b ON p.brand_id = b.id")
	if f.ID != nil {
		q = q.Where("p.id = ?", *f.ID)
	}
	if f.CategoryID != nil {
		q = q.Where("p.category_id = ?", *f.CategoryID)
	}
	if f.BrandID != nil {
		q = q.Where("p.brand_id = ?", *f.BrandID)
	}
	if f.Active != nil {
		q = q.Where("p.is_active = ?", *f.Active)
	}
	if err := q.OrderExpr("p.product_name").Scan(ctx, &rows); err != nil {
		return nil, &StorageError{Op: "list products", Err: err}
	}
	return rows, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id int64, upd ProductUpdate) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	if err := validateProductFields(upd.DiscountPercent, upd.StockQuantity, upd.PricePerUnit, upd.AgeRangeFrom, upd.AgeRangeTo); err != nil {
		return err
	}

	q := db.NewUpdate().Model((*Product)(nil)).Where("id = ?", id)
	fields := 0
	set := func(column string, value any) {
		q = q.Set(column+" = ?", value)
		fields++
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return fmt.Errorf("%w: product name cannot be empty", ErrValidation)
		}
		set("product_name", name)
	}
	if upd.SKU != nil {
		set("sku", *upd.SKU)
	}
	if upd.CategoryID != nil {
		set("category_id", *upd.CategoryID)
	}
	if upd.BrandID != nil {
		set("brand_id", *upd.BrandID)
	}
	if upd.PackageSizeML != nil {
		set("package_size_ml", *upd.PackageSizeML)
	}
	if upd.AgeRangeFrom != nil {
		set("age_range_from", *upd.AgeRangeFrom)
	}
	if upd.AgeRangeTo != nil {
		set("age_range_to", *upd.AgeRangeTo)
	}
	if upd.PricePerUnit != nil {
		set("price_per_unit", *upd.PricePerUnit)
	}
	if upd.DiscountPercent != nil {
		set("discount_percent", *upd.DiscountPercent)
	}
	if upd.StockQuantity != nil {
		set("stock_quantity", *upd.StockQuantity)
	}
	if upd.Description != nil {
		set("description", *upd.Description)
	}
	if upd.MainIngredients != nil {
		set("main_ingredients", *upd.MainIngredients)
	}
	if upd.ImageURL != nil {
		set("image_url", *upd.ImageURL)
	}
	if upd.Active != nil {
		set("is_active", *upd.Active)
	}
	if fields == 0 {
		return nil
	}
	q = q.Set("updated_at = ?", time.Now().UTC())

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := q.Exec(ctx); err != nil {
		return &StorageError{Op: "update product", Err: err}
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := db.NewDelete().Model((*Product)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return &StorageError{Op: "delete product", Err: err}
	}
	return nil
}

// UpdateStock adjusts stock_quantity by delta atomically. A decrement past
// zero fails with InsufficientStockError and leaves the row unchanged.
func (s *Store) UpdateStock(ctx context.Context, id int64, delta int) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := db.NewUpdate().Model((*Product)(nil)).
		Set("stock_quantity = stock_quantity + ?", delta).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("stock_quantity + ? >= 0", delta).
		Exec(ctx)
	if err != nil {
		return &StorageError{Op: "update stock", Err: err}
	}
	if rows, err := res.RowsAffected(); err == nil && rows > 0 {
		return nil
	}

	var stock int
	err = db.NewSelect().
		TableExpr("milk_products").
		ColumnExpr("stock_quantity").
		Where("id = ?", id).
		Scan(ctx, &stock)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: product id=%d", ErrNotFound, id)
	}
	if err != nil {
		return &StorageError{Op: "update stock", Err: err}
	}
	return &InsufficientStockError{Available: stock, Requested: -delta}
}

// LowStock lists active products at or below threshold, scarcest first.
// Threshold values below 1 fall back to 10.
func (s *Store) LowStock(ctx context.Context, threshold int) ([]ProductRow, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	if threshold <= 0 {
		threshold = 10
	}

	var rows []ProductRow
	err = db.NewSelect().
		TableExpr("milk_products AS p").
		ColumnExpr("p.*").
		ColumnExpr("b.brand_name").
		Join("LEFT JOIN milk_brands AS b ON p.brand_id = b.id").
		Where("p.is_active = ?", true).
		Where("p.stock_quantity <= ?", threshold).
		OrderExpr("p.stock_quantity ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, &StorageError{Op: "low stock", Err: err}
	}
	return rows, nil
}

// RecordSale decrements stock and inserts the order row in one transaction.
// It re-checks availability so a concurrent sale cannot oversell.
func (s *Store) RecordSale(ctx context.Context, in OrderInput) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	if in.Quantity <= 0 {
		return 0, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if strings.TrimSpace(in.CustomerEmail) == "" {
		return 0, fmt.Errorf("%w: customer email is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var orderID int64
	err = db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model((*Product)(nil)).
			Set("stock_quantity = stock_quantity - ?", in.Quantity).
			Set("updated_at = ?", now).
			Where("id = ?", in.ProductID).
			Where("is_active = ?", true).
			Where("stock_quantity >= ?", in.Quantity).
			Exec(ctx)
		if err != nil {
			return err
		}
		if rows, err := res.RowsAffected(); err != nil || rows == 0 {
			var stock int
			err := tx.NewSelect().
				TableExpr("milk_products").
				ColumnExpr("stock_quantity").
				Where("id = ?", in.ProductID).
				Where("is_active = ?", true).
				Scan(ctx, &stock)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: product id=%d", ErrNotFound, in.ProductID)
			}
			if err != nil {
				return err
			}
			return &InsufficientStockError{Available: stock, Requested: in.Quantity}
		}

		order := &Order{
			ProductID:       in.ProductID,
			CustomerEmail:   strings.TrimSpace(in.CustomerEmail),
			Quantity:        in.Quantity,
			UnitPrice:       in.UnitPrice,
			DiscountPercent: in.DiscountPercent,
			TotalAmount:     in.TotalAmount,
			CreatedAt:       now,
		}
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return err
		}
		orderID = order.ID
		return nil
	})
	if err != nil {
		var insufficient *InsufficientStockError
		if errors.Is(err, ErrNotFound) || errors.As(err, &insufficient) {
			return 0, err
		}
		return 0, &StorageError{Op: "record sale", Err: err}
	}
	return orderID, nil
}
