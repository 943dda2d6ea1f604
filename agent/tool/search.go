package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/trungdn/milk-sell-agent/store/catalog"
)

const (
	ToolFindProducts          = "find_products"
	ToolProductsByPrice       = "products_by_price"
	ToolProductsForAge        = "products_for_age"
	ToolGetProductInfo        = "get_product_info"
	ToolDiscountedProducts    = "discounted_products"
	ToolListBrands            = "list_brands"
	ToolListCategories        = "list_categories"
	ToolProductsByBrand       = "products_by_brand"
	ToolProductsByCategory    = "products_by_category"
	ToolCheapestProducts      = "cheapest_products"
	ToolPremiumProducts       = "premium_products"
	ToolListCountries         = "list_countries"
	ToolListPriceRanges       = "list_price_ranges"
	ToolProductsByCountry     = "products_by_country"
	ToolProductsByPriceRange  = "products_by_price_range"
	ToolDatabaseStats         = "database_stats"
	ToolCheckStockQuantity    = "check_stock_quantity"
	ToolProductsInStock       = "products_in_stock"
	ToolGetStockByProductName = "get_stock_by_product_name"
)

func searchEntries(store *catalog.Store) []entry {
	return []entry{
		{
			info: Info{
				Name:        ToolFindProducts,
				Description: "Simple product search - finds products by name, brand, or description.",
				Parameters: objectSchema(map[string]any{
					"search_text": stringProp("Text matched against product name, brand name, and description"),
					"limit":       integerProp("Maximum number of results (default 10, max 20)"),
				}, "search_text"),
			},
			run: func(ctx context.Context, args map[string]any) (any, error) {
				term, err := stringArg(args, "search_text")
				if err != nil {
					return nil, err
				}
				limit, err := optionalIntArg(args, "limit", 0)
				if err != nil {
					return nil, err
				}
				return store.SearchProducts(ctx, term, limit)
			},
		},
		{
			info: Info{
				Name:        ToolProductsByPrice,
				Description: "Find products within a price range.",
				Parameters: objectSchema(map[string]any{
					"min_price": numberProp("Lower price bound in VND, inclusive"),
					"max_price": numberProp("Upper price bound in VND, inclusive"),
				}, "min_price", "max_price"),
			},
			run: func(ctx context.Context, args map[string]any) (any, error) {
				minPrice, err := numberArg(args, "min_price")
				if err != nil {
					return nil, err
				}
				maxPrice, err := numberArg(args, "max_price")
				if err != nil {
					return nil, err
				}
				return store.ProductsByPrice(ctx, minPrice, maxPrice)
			},
		},
		{
			info: Info{
				Name:        ToolProductsForAge,
				Description: "Find products suitable for a child's age.",
				Parameters: objectSchema(map[string]any{
					"child_age_months": integerProp("Child's age in months"),
				}, "child_age_months"),
			},
			run: func(ctx context.Context, args map[string]any) (any, error) {
				age, err := intArg(args, "child_age_months")
				if err != nil {
					return nil, err
				}
				return store.ProductsForAge(ctx, age)
			},
		},
		{
			info: Info{
				Name:        ToolGetProductInfo,
				Description: "Get complete information about a specific product.",
				Parameters: objectSchema(map[string]any{
					"product_id": integerProp("Product id"),
				}, "product_id"),
			},
			run: func(ctx context.Context, args map[string]any) (any, error) {
				id, err := intArg(args, "product_id")
				if err != nil {
					return nil, err
				}
				detail, err := store.ProductDetail(ctx, int64(id))
				if errors.Is(err, catalog.ErrNotFound) {
					return map[string]any{}, nil
				}
				if err != nil {
					return nil, err
				}
				return detail, nil
			},
		},
		{
			info: Info{
				Name:        ToolDiscountedProducts,
				Description: "Get products currently on discount.",
				Parameters:  objectSchema(map[string]any{}),
			},
			run: func(ctx context.Context, _ map[string]any) (any, error) {
				return store.DiscountedProducts(ctx)
			},
		},
		{
			info: Info{
				Name:        ToolListBrands,
				Description: "Get all available milk brands with detailed information.",
				Parameters:  objectSchema(map[string]any{}),
			},
			run: func(ctx context.Context, _ map[string]any) (any, error) {
				return store.BrandSummaries(ctx)
			},
		},
		{
			info: Info{
				Name:        ToolListCategories,
				Description: "Get all product categories (các loại sữa) with detailed information.",
				Parameters:  objectSchema(map[string]any{}),
			},
			run: func(ctx context.Context, _ map[string]any) (any, error) {
				return store.CategorySummaries(ctx)
			},
		},
		{
			info: Info{
				Name:        ToolProductsByBrand,
				Description: "Get all products from a specific brand.",
				Parameters: objectSchema(map[string]any{
					"brand_name": stringProp("Brand name, full or partial"),
				}, "brand_name"),
			},
			run: func(ctx context.Context, args map[string]any) (any, error) {
				name, err := stringArg(args, "brand_name")
				if err != nil {
					return nil, err
				}
				return store.ProductsByBrandName(ctx, name)
			},
		},
		{
			info: Info{
				Name:        ToolProductsByCategory,
				Description: "Get all products in a specific category.",
				Parameters: objectSchema(map[string]any{
					"category_name": stringProp("Category name, full or partial"),
				}, "category_name"),
			},
			run: func(ctx context.Context, args map[string]any) (any, error) {
				name, err := stringArg(args, "category_name")
				if err != nil {
					return nil, err
				}
				return store.ProductsByCategoryName(ctx, name)
			},
		},
		{
			info: Info{
				Name:        ToolCheapestProducts,
				Description: "Get the cheapest products available. Returns products sorted by price from LOWEST to HIGHEST.",
				Parameters: objectSchema(map[string]any{
					"limit": integerProp("Maximum number of results (default 10, max 20)"),
				}),
			},
			run: func(ctx context.Context, args map[string]any) (any, error) {
				limit, err := optionalIntArg(args, "limit", 0)
				if err != nil {
					return nil, err
				}
				return store.CheapestProducts(ctx, limit)
			},
		},
		{
			info: Info{
				Name:        ToolPremiumProducts,
				Description: "Get premium/high-end products.",
				Parameters: objectSchema(map[string]any{
					"limit": integerProp("Maximum number of results (default 10, max 20)"),
				}),
			},
			run: func(ctx context.Context, args map[string]any) (any, error) {
				limit, err := optionalIntArg(args, "limit", 0)
				if err != nil {
					return nil, err
				}
				return store.PremiumProducts(ctx, limit)
			},
		},
		{
			info: Info{
				Name:        ToolListCountries,
				Description: "Get all countries of origin (các nhà cung cấp/nước xuất xứ) with product information.",
				Parameters:  objectSchema(map[string]any{}),
			},
			run: func(ctx context.Context, _ map[string]any) (any, error) {
				return store.CountrySummaries(ctx)
			},
		},
		{
			info: Info{
				Name:        ToolListPriceRanges,
				Description: "Get available price ranges (các mức giá) with product counts.",
				Parameters:  objectSchema(map[string]any{}),
			},
			run: func(ctx context.Context, _ map[string]any) (any, error) {
				return store.PriceRangeSummaries(ctx)
			},
		},
		{
			info: Info{
				Name:        ToolProductsByCountry,
				Description: "Get all products from a specific country of origin (nước xuất xứ).",
				Parameters: objectSchema(map[string]any{
					"country_name": stringProp("Country of origin, full or partial"),
				}, "country_name"),
			},
			run: func(ctx context.Context, args map[string]any) (any, error) {
				name, err := stringArg(args, "country_name")
				if err != nil {
					return nil, err
				}
				return store.ProductsByCountry(ctx, name)
			},
		},
		{
			info: Info{
				Name:        ToolProductsByPriceRange,
				Description: "Get products in a specific price range bracket.",
				Parameters: objectSchema(map[string]any{
					"price_range": stringProp("One of: 0-100k, 100k-200k, 200k-300k, 300k-500k, 500k-1000k, 1000k+"),
				}, "price_range"),
			},
			run: func(ctx context.Context, args map[string]any) (any, error) {
				band, err := stringArg(args, "price_range")
				if err != nil {
					return nil, err
				}
				return store.ProductsInPriceBand(ctx, band)
			},
		},
		{
			info: Info{
				Name:        ToolDatabaseStats,
				Description: "Get basic statistics about the database.",
				Parameters:  objectSchema(map[string]any{}),
			},
			run: func(ctx context.Context, _ map[string]any) (any, error) {
				return store.Stats(ctx)
			},
		},
		{
			info: Info{
				Name:        ToolCheckStockQuantity,
				Description: "Check current stock quantity of a product.",
				Parameters: objectSchema(map[string]any{
					"product_id": integerProp("Product id"),
				}, "product_id"),
			},
			run: func(ctx context.Context, args map[string]any) (any, error) {
				id, err := intArg(args, "product_id")
				if err != nil {
					return nil, err
				}
				status, err := store.StockByID(ctx, int64(id))
				if errors.Is(err, catalog.ErrNotFound) {
					return map[string]any{"error": "Product not found"}, nil
				}
				if err != nil {
					return nil, err
				}
				return status, nil
			},
		},
		{
			info: Info{
				Name:        ToolProductsInStock,
				Description: "Get list of products currently in stock.",
				Parameters: objectSchema(map[string]any{
					"limit": integerProp("Maximum number of results (default 15, max 50)"),
				}),
			},
			run: func(ctx context.Context, args map[string]any) (any, error) {
				limit, err := optionalIntArg(args, "limit", 0)
				if err != nil {
					return nil, err
				}
				return store.ProductsInStock(ctx, limit)
			},
		},
		{
			info: Info{
				Name:        ToolGetStockByProductName,
				Description: "Get stock quantity of a product by its name. Use this when customer asks about stock quantity.",
				Parameters: objectSchema(map[string]any{
					"product_name": stringProp("Product name, full or partial"),
				}, "product_name"),
			},
			run: func(ctx context.Context, args map[string]any) (any, error) {
				name, err := stringArg(args, "product_name")
				if err != nil {
					return nil, err
				}
				row, err := store.StockByName(ctx, name)
				if errors.Is(err, catalog.ErrNotFound) {
					return map[string]any{"error": fmt.Sprintf("Product '%s' not found", name)}, nil
				}
				if err != nil {
					return nil, err
				}
				return row, nil
			},
		},
	}
}
