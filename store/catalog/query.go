package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ProductSummary is the projection returned by the search queries. Each
// query fills the columns it selects; the rest stay nil and are omitted
// from JSON.
type ProductSummary struct {
	ID              int64    `bun:"id" json:"id"`
	Name            string   `bun:"product_name" json:"product_name"`
	BrandName       *string  `bun:"brand_name" json:"brand_name,omitempty"`
	CategoryName    *string  `bun:"category_name" json:"category_name,omitempty"`
	PricePerUnit    *float64 `bun:"price_per_unit" json:"price_per_unit,omitempty"`
	PackageSizeML   *int     `bun:"package_size_ml" json:"package_size_ml,omitempty"`
	AgeRangeFrom    *int     `bun:"age_range_from" json:"age_range_from,omitempty"`
	AgeRangeTo      *int     `bun:"age_range_to" json:"age_range_to,omitempty"`
	DiscountPercent *int     `bun:"discount_percent" json:"discount_percent,omitempty"`
	StockQuantity   *int     `bun:"stock_quantity" json:"stock_quantity,omitempty"`
	Country         *string  `bun:"country_of_origin" json:"country_of_origin,omitempty"`
	OriginalPrice   *float64 `bun:"-" json:"original_price,omitempty"`
}

// ProductDetail is the full product record with brand and category context.
type ProductDetail struct {
	ID              int64     `bun:"id" json:"id"`
	Name            string    `bun:"product_name" json:"product_name"`
	SKU             *string   `bun:"sku" json:"sku,omitempty"`
	CategoryID      *int64    `bun:"category_id" json:"category_id,omitempty"`
	BrandID         *int64    `bun:"brand_id" json:"brand_id,omitempty"`
	PackageSizeML   *int      `bun:"package_size_ml" json:"package_size_ml,omitempty"`
	AgeRangeFrom    *int      `bun:"age_range_from" json:"age_range_from,omitempty"`
	AgeRangeTo      *int      `bun:"age_range_to" json:"age_range_to,omitempty"`
	PricePerUnit    *float64  `bun:"price_per_unit" json:"price_per_unit,omitempty"`
	DiscountPercent int       `bun:"discount_percent" json:"discount_percent"`
	StockQuantity   int       `bun:"stock_quantity" json:"stock_quantity"`
	Description     *string   `bun:"description" json:"description,omitempty"`
	MainIngredients *string   `bun:"main_ingredients" json:"main_ingredients,omitempty"`
	ImageURL        *string   `bun:"image_url" json:"image_url,omitempty"`
	IsActive        bool      `bun:"is_active" json:"is_active"`
	CreatedAt       time.Time `bun:"created_at" json:"created_at"`
	UpdatedAt       time.Time `bun:"updated_at" json:"updated_at"`
	CategoryName    *string   `bun:"category_name" json:"category_name"`
	BrandName       *string   `bun:"brand_name" json:"brand_name"`
	Country         *string   `bun:"country_of_origin" json:"country_of_origin"`
	BrandIsPremium  *bool     `bun:"is_premium" json:"is_premium"`
}

type BrandSummary struct {
	ID             int64    `bun:"id" json:"id"`
	Name           string   `bun:"brand_name" json:"brand_name"`
	Country        *string  `bun:"country_of_origin" json:"country_of_origin"`
	Description    *string  `bun:"description" json:"description"`
	MarketPosition *string  `bun:"market_position" json:"market_position"`
	IsPremium      bool     `bun:"is_premium" json:"is_premium"`
	LogoURL        *string  `bun:"logo_url" json:"logo_url"`
	ProductCount   int      `bun:"product_count" json:"product_count"`
	MinPrice       *float64 `bun:"min_price" json:"min_price"`
	MaxPrice       *float64 `bun:"max_price" json:"max_price"`
	AvgPrice       *float64 `bun:"avg_price" json:"avg_price"`
}

type CategorySummary struct {
	ID           int64    `bun:"id" json:"id"`
	Name         string   `bun:"category_name" json:"category_name"`
	Description  *string  `bun:"description" json:"description"`
	ImageURL     *string  `bun:"image_url" json:"image_url"`
	ProductCount int      `bun:"product_count" json:"product_count"`
	MinPrice     *float64 `bun:"min_price" json:"min_price"`
	MaxPrice     *float64 `bun:"max_price" json:"max_price"`
	AvgPrice     *float64 `bun:"avg_price" json:"avg_price"`
}

type CountrySummary struct {
	Country      *string  `bun:"country_of_origin" json:"country_of_origin"`
	BrandCount   int      `bun:"brand_count" json:"brand_count"`
	ProductCount int      `bun:"product_count" json:"product_count"`
	MinPrice     *float64 `bun:"min_price" json:"min_price"`
	MaxPrice     *float64 `bun:"max_price" json:"max_price"`
	AvgPrice     *float64 `bun:"avg_price" json:"avg_price"`
}

type PriceRangeSummary struct {
	Range        string   `bun:"price_range" json:"price_range"`
	MinPrice     *float64 `bun:"min_price" json:"min_price"`
	MaxPrice     *float64 `bun:"max_price" json:"max_price"`
	ProductCount int      `bun:"product_count" json:"product_count"`
	AvgPrice     *float64 `bun:"avg_price" json:"avg_price"`
}

type Stats struct {
	TotalProducts      int      `json:"total_products"`
	TotalBrands        int      `json:"total_brands"`
	TotalCategories    int      `json:"total_categories"`
	TotalCountries     int      `json:"total_countries"`
	MinPrice           *float64 `json:"min_price"`
	MaxPrice           *float64 `json:"max_price"`
	AvgPrice           *float64 `json:"avg_price"`
	ProductsOnDiscount int      `json:"products_on_discount"`
}

// StockStatus is the by-id stock check result.
type StockStatus struct {
	ID            int64   `bun:"id" json:"id"`
	ProductName   string  `bun:"product_name" json:"product_name"`
	BrandName     *string `bun:"brand_name" json:"brand_name"`
	StockQuantity int     `bun:"stock_quantity" json:"stock_quantity"`
	Status        string  `bun:"-" json:"status"`
}

// StockByName is the fuzzy name lookup result.
type StockByName struct {
	ProductID     int64    `bun:"product_id" json:"product_id"`
	ProductName   string   `bun:"product_name" json:"product_name"`
	BrandName     *string  `bun:"brand_name" json:"brand_name"`
	StockQuantity int      `bun:"stock_quantity" json:"stock_quantity"`
	PricePerUnit  *float64 `bun:"price_per_unit" json:"price_per_unit"`
	Status        string   `bun:"-" json:"status"`
}

// PriceBands are the fixed buckets accepted by ProductsInPriceBand, mapped
// to [min, max) in VND.
var PriceBands = map[string][2]float64{
	"0-100k":     {0, 100000},
	"100k-200k":  {100000, 200000},
	"200k-300k":  {200000, 300000},
	"300k-500k":  {300000, 500000},
	"500k-1000k": {500000, 1000000},
	"1000k+":     {1000000, 999999999},
}

const (
	StockStatusIn  = "In Stock"
	StockStatusOut = "Out of Stock"
)

func capLimit(limit, fallback, max int) int {
	if limit <= 0 {
		limit = fallback
	}
	if limit > max {
		return max
	}
	return limit
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundAvg(p *float64) *float64 {
	if p == nil {
		return nil
	}
	r := round2(*p)
	return &r
}

func notEmpty(rows []ProductSummary) []ProductSummary {
	if rows == nil {
		return []ProductSummary{}
	}
	return rows
}

// SearchProducts matches the term against product name, brand name and
// description. Capped at 20 rows.
func (s *Store) SearchProducts(ctx context.Context, term string, limit int) ([]ProductSummary, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	limit = capLimit(limit, 10, 20)
	pattern := "%" + term + "%"

	var rows []ProductSummary
	err = db.NewSelect().
		TableExpr("milk_products AS p").
		ColumnExpr("p.id, p.product_name, b.brand_name, c.category_name").
		ColumnExpr("p.price_per_unit, p.package_size_ml, p.age_range_from, p.age_range_to").
		ColumnExpr("p.discount_percent, p.stock_quantity").
		Join("LEFT JOIN product_categories AS c ON p.category_id = c.id").
		Join("LEFT JOIN milk_brands AS b ON p.brand_id = b.id").
		Where("(p.product_name LIKE ? OR b.brand_name LIKE ? OR p.description LIKE ?)", pattern, pattern, pattern).
		Where("p.is_active = ?", true).
		OrderExpr("p.product_name").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, &StorageError{Op: "search products", Err: err}
	}
	return notEmpty(rows), nil
}

// ProductsByPrice lists active products priced within [min, max], cheapest
// first, at most 15 rows.
func (s *Store) ProductsByPrice(ctx context.Context, minPrice, maxPrice float64) ([]ProductSummary, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	var rows []ProductSummary
	err = db.NewSelect().
		TableExpr("milk_products AS p").
		ColumnExpr("p.id, p.product_name, b.brand_name, c.category_name").
		ColumnExpr("p.price_per_unit, p.package_size_ml, p.discount_percent, p.stock_quantity").
		Join("LEFT JOIN product_categories AS c ON p.category_id = c.id").
		Join("LEFT JOIN milk_brands AS b ON p.brand_id = b.id").
		Where("p.price_per_unit BETWEEN ? AND ?", minPrice, maxPrice).
		Where("p.is_active = ?", true).
		OrderExpr("p.price_per_unit ASC").
		Limit(15).
		Scan(ctx, &rows)
	if err != nil {
		return nil, &StorageError{Op: "products by price", Err: err}
	}
	return notEmpty(rows), nil
}

// ProductsForAge lists active products whose age range covers the child's
// age in months, cheapest first, at most 15 rows.
func (s *Store) ProductsForAge(ctx context.Context, ageMonths int) ([]ProductSummary, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	var rows []ProductSummary
	err = db.NewSelect().
		TableExpr("milk_products AS p").
		ColumnExpr("p.id, p.product_name, b.brand_name, c.category_name").
		ColumnExpr("p.price_per_unit, p.package_size_ml, p.age_range_from, p.age_range_to").
		ColumnExpr("p.discount_percent, p.stock_quantity").
		Join("LEFT JOIN product_categories AS c ON p.category_id = c.id").
		Join("LEFT JOIN milk_brands AS b ON p.brand_id = b.id").
		Where("? BETWEEN p.age_range_from AND p.age_range_to", ageMonths).
		Where("p.is_active = ?", true).
		OrderExpr("p.price_per_unit ASC").
		Limit(15).
		Scan(ctx, &rows)
	if err != nil {
		return nil, &StorageError{Op: "products for age", Err: err}
	}
	return notEmpty(rows), nil
}

// ProductDetail returns the full record for one product, active or not.
func (s *Store) ProductDetail(ctx context.Context, id int64) (*ProductDetail, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	detail := new(ProductDetail)
	err = db.NewSelect().
		TableExpr("milk_products AS p").
		ColumnExpr("p.*").
		ColumnExpr("c.category_name, b.brand_name, b.country_of_origin, b.is_premium").
		Join("LEFT JOIN product_categories AS c ON p.category_id = c.id").
		Join("LEFT JOIN milk_brands AS b ON p.brand_id = b.id").
		Where("p.id = ?", id).
		Scan(ctx, detail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product id=%d", ErrNotFound, id)
	}
	if err != nil {
		return nil, &StorageError{Op: "product detail", Err: err}
	}
	return detail, nil
}

// DiscountedProducts lists active products with a discount, deepest first,
// at most 15 rows. OriginalPrice back-computes the pre-discount price.
func (s *Store) DiscountedProducts(ctx context.Context) ([]ProductSummary, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	var rows []ProductSummary
	err = db.NewSelect().
		TableExpr("milk_products AS p").
		ColumnExpr("p.id, p.product_name, b.brand_name, c.category_name").
		ColumnExpr("p.price_per_unit, p.discount_percent, p.stock_quantity").
		Join("LEFT JOIN product_categories AS c ON p.category_id = c.id").
		Join("LEFT JOIN milk_brands AS b ON p.brand_id = b.id").
		Where("p.discount_percent > 0").
		Where("p.is_active = ?", true).
		OrderExpr("p.discount_percent DESC").
		Limit(15).
		Scan(ctx, &rows)
	if err != nil {
		return nil, &StorageError{Op: "discounted products", Err: err}
	}
	for i := range rows {
		r := &rows[i]
		if r.PricePerUnit == nil || r.DiscountPercent == nil {
			continue
		}
		if d := *r.DiscountPercent; d > 0 && d < 100 {
			original := round2(*r.PricePerUnit / (1 - float64(d)/100))
			r.OriginalPrice = &original
		}
	}
	return notEmpty(rows), nil
}

// BrandSummaries lists every brand with counts and price aggregates over
// its active products.
func (s *Store) BrandSummaries(ctx context.Context) ([]BrandSummary, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	rows := make([]BrandSummary, 0)
	err = db.NewRaw(`
SELECT b.id, b.brand_name, b.country_of_origin, b.description,
       b.market_position, b.is_premium, b.logo_url,
       COUNT(p.id) AS product_count,
       MIN(p.price_per_unit) AS min_price,
       MAX(p.price_per_unit) AS max_price,
       AVG(p.price_per_unit) AS avg_price
FROM milk_brands AS b
LEFT JOIN milk_products AS p ON b.id = p.brand_id AND p.is_active = ?
GROUP BY b.id, b.brand_name, b.country_of_origin, b.description,
         b.market_position, b.is_premium, b.logo_url
ORDER BY b.brand_name`, true).Scan(ctx, &rows)
	if err != nil {
		return nil, &StorageError{Op: "brand summaries", Err: err}
	}
	for i := range rows {
		rows[i].AvgPrice = roundAvg(rows[i].AvgPrice)
	}
	return rows, nil
}

// CategorySummaries lists every category with counts and price aggregates
// over its active products.
func (s *Store) CategorySummaries(ctx context.Context) ([]CategorySummary, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	rows := make([]CategorySummary, 0)
	err = db.NewRaw(`
SELECT c.id, c.category_name, c.description, c.image_url,
       COUNT(p.id) AS product_count,
       MIN(p.price_per_unit) AS min_price,
       MAX(p.price_per_unit) AS max_price,
       AVG(p.price_per_unit) AS avg_price
FROM product_categories AS c
LEFT JOIN milk_products AS p ON c.id = p.category_id AND p.is_active = ?
GROUP BY c.id, c.category_name, c.description, c.image_url
ORDER BY c.category_name`, true).Scan(ctx, &rows)
	if err != nil {
		return nil, &StorageError{Op: "category summaries", Err: err}
	}
	for i := range rows {
		rows[i].AvgPrice = roundAvg(rows[i].AvgPrice)
	}
	return rows, nil
}

// ProductsByBrandName lists active products whose brand name contains the
// given fragment, ordered by product name.
func (s *Store) ProductsByBrandName(ctx context.Context, brandName string) ([]ProductSummary, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	var rows []ProductSummary
	err = db.NewSelect().
		TableExpr("milk_products AS p").
		ColumnExpr("p.id, p.product_name, c.category_name, p.price_per_unit").
		ColumnExpr("p.package_size_ml, p.age_range_from, p.age_range_to, p.discount_percent, p.stock_quantity").
		Join("LEFT JOIN product_categories AS c ON p.category_id = c.id").
		Join("LEFT JOIN milk_brands AS b ON p.brand_id = b.id").
		Where("b.brand_name LIKE ?", "%"+brandName+"%").
		Where("p.is_active = ?", true).
		OrderExpr("p.product_name").
		Scan(ctx, &rows)
	if err != nil {
		return nil, &StorageError{Op: "products by brand", Err: err}
	}
	return notEmpty(rows), nil
}

// ProductsByCategoryName lists active products whose category name contains
// the given fragment, cheapest first.
func (s *Store) ProductsByCategoryName(ctx context.Context, categoryName string) ([]ProductSummary, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	var rows []ProductSummary
	err = db.NewSelect().
		TableExpr("milk_products AS p").
		ColumnExpr("p.id, p.product_name, b.brand_name, p.price_per_unit").
		ColumnExpr("p.package_size_ml, p.age_range_from, p.age_range_to, p.discount_percent, p.stock_quantity").
		Join("LEFT JOIN product_categories AS c ON p.category_id = c.id").
		Join("LEFT JOIN milk_brands AS b ON p.brand_id = b.id").
		Where("c.category_name LIKE ?", "%"+categoryName+"%").
		Where("p.is_active = ?", true).
		OrderExpr("p.price_per_unit ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, &StorageError{Op: "products by category", Err: err}
	}
	return notEmpty(rows), nil
}

// CheapestProducts lists priced active products from lowest to highest,
// capped at 20 rows.
func (s *Store) CheapestProducts(ctx context.Context, limit int) ([]ProductSummary, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	limit = capLimit(limit, 10, 20)

	var rows []ProductSummary
	err = db.NewSelect().
		TableExpr("milk_products AS p").
		ColumnExpr("p.id, p.product_name, b.brand_name, c.category_name").
		ColumnExpr("p.price_per_unit, p.package_size_ml, p.discount_percent, p.stock_quantity").
		Join("LEFT JOIN product_categories AS c ON p.category_id = c.id").
		Join("LEFT JOIN milk_brands AS b ON p.brand_id = b.id").
		Where("p.is_active = ?", true).
		Where("p.price_per_unit IS NOT NULL").
		Where("p.price_per_unit > 0").
		OrderExpr("p.price_per_unit ASC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, &StorageError{Op: "cheapest products", Err: err}
	}
	return notEmpty(rows), nil
}

// PremiumProducts lists active products of premium brands, most expensive
// first, capped at 20 rows.
func (s *Store) PremiumProducts(ctx context.Context, limit int) ([]ProductSummary, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	limit = capLimit(limit, 10, 20)

	var rows []ProductSummary
	err = db.NewSelect().
		TableExpr("milk_products AS p").
		ColumnExpr("p.id, p.product_name, b.brand_name, c.category_name").
		ColumnExpr("p.price_per_unit, p.package_size_ml, b.country_of_origin, p.stock_quantity").
		Join("LEFT JOIN product_categories AS c ON p.category_id = c.id").
		Join("LEFT JOIN milk_brands AS b ON p.brand_id = b.id").
		Where("b.is_premium = ?", true).
		Where("p.is_active = ?", true).
		OrderExpr("p.price_per_unit DESC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, &StorageError{Op: "premium products", Err: err}
	}
	return notEmpty(rows), nil
}

// CountrySummaries aggregates brands and active products per country of
// origin. Brands without a country form their own group.
func (s *Store) CountrySummaries(ctx context.Context) ([]CountrySummary, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	rows := make([]CountrySummary, 0)
	err = db.NewRaw(`
SELECT b.country_of_origin,
       COUNT(DISTINCT b.id) AS brand_count,
       COUNT(p.id) AS product_count,
       MIN(p.price_per_unit) AS min_price,
       MAX(p.price_per_unit) AS max_price,
       AVG(p.price_per_unit) AS avg_price
FROM milk_brands AS b
LEFT JOIN milk_products AS p ON b.id = p.brand_id AND p.is_active = ?
GROUP BY b.country_of_origin
ORDER BY product_count DESC, b.country_of_origin`, true).Scan(ctx, &rows)
	if err != nil {
		return nil, &StorageError{Op: "country summaries", Err: err}
	}
	for i := range rows {
		rows[i].AvgPrice = roundAvg(rows[i].AvgPrice)
	}
	return rows, nil
}

// PriceRangeSummaries buckets active products into the fixed price bands
// and aggregates each band. Products without a price fall into the open
// top band, mirroring CASE semantics.
func (s *Store) PriceRangeSummaries(ctx context.Context) ([]PriceRangeSummary, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	const bucket = `CASE
    WHEN price_per_unit < 100000 THEN '0-100k'
    WHEN price_per_unit < 200000 THEN '100k-200k'
    WHEN price_per_unit < 300000 THEN '200k-300k'
    WHEN price_per_unit < 500000 THEN '300k-500k'
    WHEN price_per_unit < 1000000 THEN '500k-1000k'
    ELSE '1000k+'
  END`

	rows := make([]PriceRangeSummary, 0)
	err = db.NewRaw(`
SELECT `+bucket+` AS price_range,
       MIN(price_per_unit) AS min_price,
       MAX(price_per_unit) AS max_price,
       COUNT(*) AS product_count,
       AVG(price_per_unit) AS avg_price
FROM milk_products
WHERE is_active = ?
GROUP BY `+bucket+`
ORDER BY min_price`, true).Scan(ctx, &rows)
	if err != nil {
		return nil, &StorageError{Op: "price range summaries", Err: err}
	}
	for i := range rows {
		rows[i].AvgPrice = roundAvg(rows[i].AvgPrice)
	}
	return rows, nil
}

// ProductsByCountry lists active products whose brand country matches the
// given fragment, cheapest first, at most 50 rows.
func (s *Store) ProductsByCountry(ctx context.Context, country string) ([]ProductSummary, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	var rows []ProductSummary
	err = db.NewSelect().
		TableExpr("milk_products AS p").
		ColumnExpr("p.id, p.product_name, b.brand_name, c.category_name").
		ColumnExpr("p.price_per_unit, p.package_size_ml, p.age_range_from, p.age_range_to").
		ColumnExpr("p.discount_percent, b.country_of_origin, p.stock_quantity").
		Join("LEFT JOIN product_categories AS c ON p.category_id = c.id").
		Join("LEFT JOIN milk_brands AS b ON p.brand_id = b.id").
		Where("b.country_of_origin LIKE ?", "%"+country+"%").
		Where("p.is_active = ?", true).
		OrderExpr("p.price_per_unit ASC").
		Limit(50).
		Scan(ctx, &rows)
	if err != nil {
		return nil, &StorageError{Op: "products by country", Err: err}
	}
	return notEmpty(rows), nil
}

// ProductsInPriceBand lists active products inside one of the fixed bands.
// An unknown band name yields an empty list, not an error.
func (s *Store) ProductsInPriceBand(ctx context.Context, band string) ([]ProductSummary, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	bounds, ok := PriceBands[band]
	if !ok {
		return []ProductSummary{}, nil
	}

	var rows []ProductSummary
	err = db.NewSelect().
		TableExpr("milk_products AS p").
		ColumnExpr("p.id, p.product_name, b.brand_name, c.category_name").
		ColumnExpr("p.price_per_unit, p.package_size_ml, p.age_range_from, p.age_range_to").
		ColumnExpr("p.discount_percent, p.stock_quantity").
		Join("LEFT JOIN product_categories AS c ON p.category_id = c.id").
		Join("LEFT JOIN milk_brands AS b ON p.brand_id = b.id").
		Where("p.price_per_unit >= ?", bounds[0]).
		Where("p.price_per_unit < ?", bounds[1]).
		Where("p.is_active = ?", true).
		OrderExpr("p.price_per_unit ASC").
		Limit(50).
		Scan(ctx, &rows)
	if err != nil {
		return nil, &StorageError{Op: "products in price band", Err: err}
	}
	return notEmpty(rows), nil
}

// Stats aggregates headline numbers across the catalog.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	st := new(Stats)
	counts := []struct {
		dest  *int
		query string
		args  []any
	}{
		{&st.TotalProducts, "SELECT COUNT(*) FROM milk_products WHERE is_active = ?", []any{true}},
		{&st.TotalBrands, "SELECT COUNT(*) FROM milk_brands", nil},
		{&st.TotalCategories, "SELECT COUNT(*) FROM product_categories", nil},
		{&st.TotalCountries, "SELECT COUNT(DISTINCT country_of_origin) FROM milk_brands WHERE country_of_origin IS NOT NULL AND country_of_origin != ''", nil},
		{&st.ProductsOnDiscount, "SELECT COUNT(*) FROM milk_products WHERE discount_percent > 0 AND is_active = ?", []any{true}},
	}
	for _, c := range counts {
		if err := db.NewRaw(c.query, c.args...).Scan(ctx, c.dest); err != nil {
			return nil, &StorageError{Op: "database stats", Err: err}
		}
	}

	var price struct {
		Min *float64 `bun:"min_price"`
		Max *float64 `bun:"max_price"`
		Avg *float64 `bun:"avg_price"`
	}
	err = db.NewRaw(`
SELECT MIN(price_per_unit) AS min_price,
       MAX(price_per_unit) AS max_price,
       AVG(price_per_unit) AS avg_price
FROM milk_products WHERE is_active = ?`, true).Scan(ctx, &price)
	if err != nil {
		return nil, &StorageError{Op: "database stats", Err: err}
	}
	st.MinPrice = price.Min
	st.MaxPrice = price.Max
	st.AvgPrice = roundAvg(price.Avg)

	return st, nil
}

// StockByID returns the stock status of one active product.
func (s *Store) StockByID(ctx context.Context, id int64) (*StockStatus, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	status := new(StockStatus)
	err = db.NewSelect().
		TableExpr("milk_products AS p").
		ColumnExpr("p.id, p.product_name, b.brand_name, p.stock_quantity").
		Join("LEFT JOIN milk_brands AS b ON p.brand_id = b.id").
		Where("p.id = ?", id).
		Where("p.is_active = ?", true).
		Scan(ctx, status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product id=%d", ErrNotFound, id)
	}
	if err != nil {
		return nil, &StorageError{Op: "stock by id", Err: err}
	}
	status.Status = stockLabel(status.StockQuantity)
	return status, nil
}

// ProductsInStock lists active products with stock, fullest shelves first,
// capped at 50 rows.
func (s *Store) ProductsInStock(ctx context.Context, limit int) ([]ProductSummary, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	limit = capLimit(limit, 15, 50)

	var rows []ProductSummary
	err = db.NewSelect().
		TableExpr("milk_products AS p").
		ColumnExpr("p.id, p.product_name, b.brand_name, p.price_per_unit").
		ColumnExpr("p.stock_quantity, p.discount_percent").
		Join("LEFT JOIN milk_brands AS b ON p.brand_id = b.id").
		Where("p.stock_quantity > 0").
		Where("p.is_active = ?", true).
		OrderExpr("p.stock_quantity DESC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, &StorageError{Op: "products in stock", Err: err}
	}
	return notEmpty(rows), nil
}

// StockByName resolves a product by fuzzy name match, ranking exact matches
// over prefix matches over substring matches with a stable name tie-break,
// and returns the single best hit.
func (s *Store) StockByName(ctx context.Context, name string) (*StockByName, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	exact := strings.TrimSpace(name)

	row := new(StockByName)
	err = db.NewRaw(`
SELECT p.id AS product_id, p.product_name, b.brand_name,
       p.stock_quantity, p.price_per_unit
FROM milk_products AS p
LEFT JOIN milk_brands AS b ON p.brand_id = b.id
WHERE p.product_name LIKE ? AND p.is_active = ?
ORDER BY
  CASE
    WHEN p.product_name = ? THEN 1
    WHEN p.product_name LIKE ? THEN 2
    ELSE 3
  END,
  p.product_name
LIMIT 1`, "%"+name+"%", true, exact, exact+"%").Scan(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product name=%q", ErrNotFound, name)
	}
	if err != nil {
		return nil, &StorageError{Op: "stock by name", Err: err}
	}
	row.Status = stockLabel(row.StockQuantity)
	return row, nil
}

func stockLabel(quantity int) string {
	if quantity > 0 {
		return StockStatusIn
	}
	return StockStatusOut
}
