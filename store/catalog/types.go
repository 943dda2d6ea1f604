package catalog

import (
	"time"

	"github.com/uptrace/bun"
)

type Category struct {
	bun.BaseModel `bun:"table:product_categories,alias:c"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Name        string    `bun:"category_name,notnull" json:"category_name"`
	Description *string   `bun:"description" json:"description,omitempty"`
	ImageURL    *string   `bun:"image_url" json:"image_url,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

type Brand struct {
	bun.BaseModel `bun:"table:milk_brands,alias:b"`

	ID             int64     `bun:"id,pk,autoincrement" json:"id"`
	Name           string    `bun:"brand_name,notnull" json:"brand_name"`
	Country        *string   `bun:"country_of_origin" json:"country_of_origin,omitempty"`
	Description    *string   `bun:"description" json:"description,omitempty"`
	MarketPosition *string   `bun:"market_position" json:"market_position,omitempty"`
	IsPremium      bool      `bun:"is_premium,notnull,default:false" json:"is_premium"`
	LogoURL        *string   `bun:"logo_url" json:"logo_url,omitempty"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

type Product struct {
	bun.BaseModel `bun:"table:milk_products,alias:p"`

	ID              int64     `bun:"id,pk,autoincrement" json:"id"`
	Name            string    `bun:"product_name,notnull" json:"product_name"`
	SKU             *string   `bun:"sku,unique" json:"sku,omitempty"`
	CategoryID      *int64    `bun:"category_id" json:"category_id,omitempty"`
	BrandID         *int64    `bun:"brand_id" json:"brand_id,omitempty"`
	PackageSizeML   *int      `bun:"package_size_ml" json:"package_size_ml,omitempty"`
	AgeRangeFrom    *int      `bun:"age_range_from" json:"age_range_from,omitempty"`
	AgeRangeTo      *int      `bun:"age_range_to" json:"age_range_to,omitempty"`
	PricePerUnit    *float64  `bun:"price_per_unit" json:"price_per_unit,omitempty"`
	DiscountPercent int       `bun:"discount_percent,notnull,default:0" json:"discount_percent"`
	StockQuantity   int       `bun:"stock_quantity,notnull,default:0" json:"stock_quantity"`
	Description     *string   `bun:"description" json:"description,omitempty"`
	MainIngredients *string   `bun:"main_ingredients" json:"main_ingredients,omitempty"`
	ImageURL        *string   `bun:"image_url" json:"image_url,omitempty"`
	IsActive        bool      `bun:"is_active,notnull,default:true" json:"is_active"`
	CreatedAt       time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Order is the persisted record of a completed sale.
type Order struct {
	bun.BaseModel `bun:"table:milk_orders,alias:o"`

	ID              int64     `bun:"id,pk,autoincrement" json:"id"`
	ProductID       int64     `bun:"product_id,notnull" json:"product_id"`
	CustomerEmail   string    `bun:"customer_email,notnull" json:"customer_email"`
	Quantity        int       `bun:"quantity,notnull" json:"quantity"`
	UnitPrice       float64   `bun:"unit_price,notnull" json:"unit_price"`
	DiscountPercent int       `bun:"discount_percent,notnull,default:0" json:"discount_percent"`
	TotalAmount     float64   `bun:"total_amount,notnull" json:"total_amount"`
	CreatedAt       time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// ProductRow is a product with its category and brand names joined in.
// Dangling references scan as nil names.
type ProductRow struct {
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
}

type CategoryInput struct {
	Name        string
	Description *string
	ImageURL    *string
}

type CategoryUpdate struct {
	Name        *string
	Description *string
	ImageURL    *string
}

type BrandInput struct {
	Name           string
	Country        *string
	Description    *string
	MarketPosition *string
	IsPremium      bool
	LogoURL        *string
}

type BrandUpdate struct {
	Name           *string
	Country        *string
	Description    *string
	MarketPosition *string
	IsPremium      *bool
	LogoURL        *string
}

// ProductInput creates a product. Active defaults to true when nil.
type ProductInput struct {
	Name            string
	SKU             *string
	CategoryID      *int64
	BrandID         *int64
	PackageSizeML   *int
	AgeRangeFrom    *int
	AgeRangeTo      *int
	PricePerUnit    *float64
	DiscountPercent int
	StockQuantity   int
	Description     *string
	MainIngredients *string
	ImageURL        *string
	Active          *bool
}

type ProductUpdate struct {
	Name            *string
	SKU             *string
	CategoryID      *int64
	BrandID         *int64
	PackageSizeML   *int
	AgeRangeFrom    *int
	AgeRangeTo      *int
	PricePerUnit    *float64
	DiscountPercent *int
	StockQuantity   *int
	Description     *string
	MainIngredients *string
	ImageURL        *string
	Active          *bool
}

// ProductFilter narrows Products; nil fields are unfiltered and set fields
// are AND-combined.
type ProductFilter struct {
	ID         *int64
	CategoryID *int64
	BrandID    *int64
	Active     *bool
}

// OrderInput records one completed sale.
type OrderInput struct {
	ProductID       int64
	CustomerEmail   string
	Quantity        int
	UnitPrice       float64
	DiscountPercent int
	TotalAmount     float64
}
