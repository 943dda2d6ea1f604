package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func ptr[T any](v T) *T { return &v }

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s := NewStore(Config{DSN: filepath.Join(t.TempDir(), "catalog.db")})
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// fixture holds the ids of the seeded rows used across query tests.
type fixture struct {
	powderCat, freshCat      int64
	brandX, premico, noLand  int64
	milkA, milkABC, goldCare int64
	budgetTin, nightFeed     int64
	unpriced                 int64
}

func seedCatalog(t *testing.T, s *Store) fixture {
	t.Helper()
	ctx := context.Background()

	var fx fixture
	var err error

	fx.powderCat, err = s.CreateCategory(ctx, CategoryInput{Name: "Sữa bột"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	fx.freshCat, err = s.CreateCategory(ctx, CategoryInput{Name: "Sữa tươi"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	fx.brandX, err = s.CreateBrand(ctx, BrandInput{Name: "BrandX", Country: ptr("Vietnam")})
	if err != nil {
		t.Fatalf("CreateBrand() error = %v", err)
	}
	fx.premico, err = s.CreateBrand(ctx, BrandInput{Name: "Premico", Country: ptr("France"), IsPremium: true})
	if err != nil {
		t.Fatalf("CreateBrand() error = %v", err)
	}
	fx.noLand, err = s.CreateBrand(ctx, BrandInput{Name: "NoLand"})
	if err != nil {
		t.Fatalf("CreateBrand() error = %v", err)
	}

	products := []struct {
		id    *int64
		input ProductInput
	}{
		{&fx.milkA, ProductInput{
			Name: "Milk A", CategoryID: &fx.powderCat, BrandID: &fx.brandX,
			PackageSizeML: ptr(400), AgeRangeFrom: ptr(0), AgeRangeTo: ptr(6),
			PricePerUnit: ptr(100000.0), StockQuantity: 10,
		}},
		{&fx.milkABC, ProductInput{
			Name: "Milk ABC", CategoryID: &fx.powderCat, BrandID: &fx.brandX,
			AgeRangeFrom: ptr(6), AgeRangeTo: ptr(12),
			PricePerUnit: ptr(150000.0), StockQuantity: 5,
		}},
		{&fx.goldCare, ProductInput{
			Name: "Gold Care", CategoryID: &fx.freshCat, BrandID: &fx.premico,
			AgeRangeFrom: ptr(12), AgeRangeTo: ptr(36),
			PricePerUnit: ptr(450000.0), DiscountPercent: 10, StockQuantity: 3,
			Description: ptr("Premium milk for toddlers"),
		}},
		{&fx.budgetTin, ProductInput{
			Name: "Budget Tin", CategoryID: &fx.powderCat, BrandID: &fx.noLand,
			PricePerUnit: ptr(90000.0), StockQuantity: 0,
		}},
		{&fx.nightFeed, ProductInput{
			Name: "Night Feed", CategoryID: &fx.powderCat, BrandID: &fx.brandX,
			PricePerUnit: ptr(120000.0), StockQuantity: 7, Active: ptr(false),
		}},
		{&fx.unpriced, ProductInput{
			Name: "Unpriced Sample", BrandID: &fx.noLand, StockQuantity: 2,
		}},
	}
	for _, p := range products {
		id, err := s.CreateProduct(ctx, p.input)
		if err != nil {
			t.Fatalf("CreateProduct(%s) error = %v", p.input.Name, err)
		}
		*p.id = id
	}
	return fx
}

func TestStoreRejectsQueriesBeforeConnect(t *testing.T) {
	t.Parallel()

	s := NewStore(Config{DSN: "unused.db"})
	_, err := s.Categories(context.Background(), nil)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Categories() error = %v, want ErrNotConnected", err)
	}
}

func TestStoreConnectEmptyDSN(t *testing.T) {
	t.Parallel()

	s := NewStore(Config{})
	if err := s.Connect(context.Background()); !errors.Is(err, ErrValidation) {
		t.Fatalf("Connect() error = %v, want ErrValidation", err)
	}
}

func TestStoreConnectTwiceIsNoOp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newTestStore(t)
	id, err := s.CreateCategory(ctx, CategoryInput{Name: "Sữa bột"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}

	cats, err := s.Categories(ctx, &id)
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if len(cats) != 1 {
		t.Fatalf("expected seeded category to survive reconnect, got %d rows", len(cats))
	}
}

func TestCategoryLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newTestStore(t)
	id, err := s.CreateCategory(ctx, CategoryInput{Name: "Sữa bột", Description: ptr("formula powders")})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if id <= 0 {
		t.Fatalf("CreateCategory() id = %d, want > 0", id)
	}

	cats, err := s.Categories(ctx, nil)
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if len(cats) != 1 || cats[0].Name != "Sữa bột" {
		t.Fatalf("unexpected categories: %#v", cats)
	}

	if err := s.UpdateCategory(ctx, id, CategoryUpdate{Description: ptr("powder formulas")}); err != nil {
		t.Fatalf("UpdateCategory() error = %v", err)
	}
	cats, err = s.Categories(ctx, &id)
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if got := cats[0].Description; got == nil || *got != "powder formulas" {
		t.Fatalf("description not updated: %v", got)
	}

	if err := s.DeleteCategory(ctx, id); err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}
	cats, err = s.Categories(ctx, nil)
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if len(cats) != 0 {
		t.Fatalf("expected no categories after delete, got %d", len(cats))
	}
}

func TestCreateCategoryRejectsEmptyName(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if _, err := s.CreateCategory(context.Background(), CategoryInput{Name: "   "}); !errors.Is(err, ErrValidation) {
		t.Fatalf("CreateCategory() error = %v, want ErrValidation", err)
	}
}

func TestUpdateCategoryWithoutFieldsLeavesRowUntouched(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newTestStore(t)
	id, err := s.CreateCategory(ctx, CategoryInput{Name: "Sữa tươi"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	before, err := s.Categories(ctx, &id)
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}

	if err := s.UpdateCategory(ctx, id, CategoryUpdate{}); err != nil {
		t.Fatalf("UpdateCategory() error = %v", err)
	}

	after, err := s.Categories(ctx, &id)
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if !after[0].UpdatedAt.Equal(before[0].UpdatedAt) {
		t.Fatalf("updated_at changed on no-op update: %v -> %v", before[0].UpdatedAt, after[0].UpdatedAt)
	}
	if after[0].Name != before[0].Name {
		t.Fatalf("name changed on no-op update: %q -> %q", before[0].Name, after[0].Name)
	}
}

func TestUpdateCategoryRefreshesUpdatedAt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newTestStore(t)
	id, err := s.CreateCategory(ctx, CategoryInput{Name: "Sữa dê"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	before, err := s.Categories(ctx, &id)
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if err := s.UpdateCategory(ctx, id, CategoryUpdate{Name: ptr("Sữa dê núi")}); err != nil {
		t.Fatalf("UpdateCategory() error = %v", err)
	}

	after, err := s.Categories(ctx, &id)
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if !after[0].UpdatedAt.After(before[0].UpdatedAt) {
		t.Fatalf("updated_at not refreshed: %v -> %v", before[0].UpdatedAt, after[0].UpdatedAt)
	}
}

func TestBrandLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newTestStore(t)
	id, err := s.CreateBrand(ctx, BrandInput{Name: "Premico", Country: ptr("France"), IsPremium: true})
	if err != nil {
		t.Fatalf("CreateBrand() error = %v", err)
	}

	brands, err := s.Brands(ctx, &id)
	if err != nil {
		t.Fatalf("Brands() error = %v", err)
	}
	if len(brands) != 1 || !brands[0].IsPremium {
		t.Fatalf("unexpected brands: %#v", brands)
	}

	if err := s.UpdateBrand(ctx, id, BrandUpdate{IsPremium: ptr(false), MarketPosition: ptr("mid-range")}); err != nil {
		t.Fatalf("UpdateBrand() error = %v", err)
	}
	brands, err = s.Brands(ctx, &id)
	if err != nil {
		t.Fatalf("Brands() error = %v", err)
	}
	if brands[0].IsPremium {
		t.Fatal("is_premium not updated")
	}
	if got := brands[0].MarketPosition; got == nil || *got != "mid-range" {
		t.Fatalf("market_position not updated: %v", got)
	}

	if err := s.DeleteBrand(ctx, id); err != nil {
		t.Fatalf("DeleteBrand() error = %v", err)
	}
	brands, err = s.Brands(ctx, nil)
	if err != nil {
		t.Fatalf("Brands() error = %v", err)
	}
	if len(brands) != 0 {
		t.Fatalf("expected no brands after delete, got %d", len(brands))
	}
}

func TestCreateProductRejectsInvalidFields(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newTestStore(t)
	cases := []struct {
		name  string
		input ProductInput
	}{
		{"empty name", ProductInput{Name: " "}},
		{"discount above 100", ProductInput{Name: "X", DiscountPercent: 101}},
		{"negative discount", ProductInput{Name: "X", DiscountPercent: -1}},
		{"negative stock", ProductInput{Name: "X", StockQuantity: -1}},
		{"negative price", ProductInput{Name: "X", PricePerUnit: ptr(-5.0)}},
		{"inverted age range", ProductInput{Name: "X", AgeRangeFrom: ptr(12), AgeRangeTo: ptr(6)}},
	}
	for _, tc := range cases {
		if _, err := s.CreateProduct(ctx, tc.input); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: CreateProduct() error = %v, want ErrValidation", tc.name, err)
		}
	}
}

func TestProductDefaultsToActive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newTestStore(t)
	id, err := s.CreateProduct(ctx, ProductInput{Name: "Milk A"})
	if err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}

	rows, err := s.Products(ctx, ProductFilter{ID: &id, Active: ptr(true)})
	if err != nil {
		t.Fatalf("Products() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected product to default to active, got %d rows", len(rows))
	}
}

func TestProductsFilterCombination(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newTestStore(t)
	fx := seedCatalog(t, s)

	rows, err := s.Products(ctx, ProductFilter{BrandID: &fx.brandX, Active: ptr(true)})
	if err != nil {
		t.Fatalf("Products() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 active BrandX products, got %d", len(rows))
	}
	for _, r := range rows {
		if r.BrandName == nil || *r.BrandName != "BrandX" {
			t.Fatalf("unexpected brand on row %d: %v", r.ID, r.BrandName)
		}
	}

	rows, err = s.Products(ctx, ProductFilter{Active: ptr(false)})
	if err != nil {
		t.Fatalf("Products() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Night Feed" {
		t.Fatalf("unexpected inactive products: %#v", rows)
	}
}

func TestUpdateProductPartialFields(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newTestStore(t)
	fx := seedCatalog(t, s)

	err := s.UpdateProduct(ctx, fx.milkA, ProductUpdate{
		PricePerUnit:    ptr(110000.0),
		DiscountPercent: ptr(5),
	})
	if err != nil {
		t.Fatalf("UpdateProduct() error = %v", err)
	}

	rows, err := s.Products(ctx, ProductFilter{ID: &fx.milkA})
	if err != nil {
		t.Fatalf("Products() error = %v", err)
	}
	got := rows[0]
	if got.PricePerUnit == nil || *got.PricePerUnit != 110000 {
		t.Fatalf("price not updated: %v", got.PricePerUnit)
	}
	if got.DiscountPercent != 5 {
		t.Fatalf("discount not updated: %d", got.DiscountPercent)
	}
	if got.Name != "Milk A" {
		t.Fatalf("untouched field changed: %q", got.Name)
	}
}

func TestUpdateProductRejectsInvalidDiscount(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	fx := seedCatalog(t, s)

	err := s.UpdateProduct(context.Background(), fx.milkA, ProductUpdate{DiscountPercent: ptr(150)})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("UpdateProduct() error = %v, want ErrValidation", err)
	}
}

func TestUpdateStock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newTestStore(t)
	fx := seedCatalog(t, s)

	if err := s.UpdateStock(ctx, fx.milkA, 5); err != nil {
		t.Fatalf("UpdateStock(+5) error = %v", err)
	}
	if err := s.UpdateStock(ctx, fx.milkA, -15); err != nil {
		t.Fatalf("UpdateStock(-15) error = %v", err)
	}

	status, err := s.StockByID(ctx, fx.milkA)
	if err != nil {
		t.Fatalf("StockByID() error = %v", err)
	}
	if status.StockQuantity != 0 {
		t.Fatalf("stock = %d, want 0", status.StockQuantity)
	}
	if status.Status != StockStatusOut {
		t.Fatalf("status = %q, want %q", status.Status, StockStatusOut)
	}
}

func TestUpdateStockGuardsNegativeStock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newTestStore(t)
	fx := seedCatalog(t, s)

	err := s.UpdateStock(ctx, fx.milkABC, -6)
	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("UpdateStock() error = %v, want InsufficientStockError", err)
	}
	if insufficient.Available != 5 || insufficient.Requested != 6 {
		t.Fatalf("unexpected error detail: %+v", insufficient)
	}

	status, err := s.StockByID(ctx, fx.milkABC)
	if err != nil {
		t.Fatalf("StockByID() error = %v", err)
	}
	if status.StockQuantity != 5 {
		t.Fatalf("stock changed on rejected decrement: %d", status.StockQuantity)
	}
}

func TestUpdateStockUnknownProduct(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	seedCatalog(t, s)

	if err := s.UpdateStock(context.Background(), 99999, -1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateStock() error = %v, want ErrNotFound", err)
	}
}

func TestLowStockAscending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newTestStore(t)
	seedCatalog(t, s)

	rows, err := s.LowStock(ctx, 3)
	if err != nil {
		t.Fatalf("LowStock() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 low-stock products, got %d", len(rows))
	}
	if rows[0].Name != "Budget Tin" || rows[0].StockQuantity != 0 {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].StockQuantity < rows[i-1].StockQuantity {
			t.Fatalf("rows not ascending by stock: %d before %d", rows[i-1].StockQuantity, rows[i].StockQuantity)
		}
	}
}

func TestLowStockDefaultThreshold(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	seedCatalog(t, s)

	rows, err := s.LowStock(context.Background(), 0)
	if err != nil {
		t.Fatalf("LowStock() error = %v", err)
	}
	// Every active product in the fixture holds at most 10 units.
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows at default threshold, got %d", len(rows))
	}
}

func TestRecordSaleDecrementsStockAndWritesOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newTestStore(t)
	fx := seedCatalog(t, s)

	orderID, err := s.RecordSale(ctx, OrderInput{
		ProductID:     fx.milkABC,
		CustomerEmail: "buyer@example.com",
		Quantity:      2,
		UnitPrice:     150000,
		TotalAmount:   300000,
	})
	if err != nil {
		t.Fatalf("RecordSale() error = %v", err)
	}
	if orderID <= 0 {
		t.Fatalf("RecordSale() id = %d, want > 0", orderID)
	}

	status, err := s.StockByID(ctx, fx.milkABC)
	if err != nil {
		t.Fatalf("StockByID() error = %v", err)
	}
	if status.StockQuantity != 3 {
		t.Fatalf("stock = %d, want 3", status.StockQuantity)
	}

	var order Order
	if err := s.db.NewSelect().Model(&order).Where("o.id = ?", orderID).Scan(ctx); err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.ProductID != fx.milkABC || order.Quantity != 2 || order.TotalAmount != 300000 {
		t.Fatalf("unexpected order row: %+v", order)
	}
	if order.CustomerEmail != "buyer@example.com" {
		t.Fatalf("unexpected customer email: %q", order.CustomerEmail)
	}
}

func TestRecordSaleInsufficientStock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newTestStore(t)
	fx := seedCatalog(t, s)

	_, err := s.RecordSale(ctx, OrderInput{
		ProductID:     fx.milkABC,
		CustomerEmail: "buyer@example.com",
		Quantity:      6,
		UnitPrice:     150000,
		TotalAmount:   900000,
	})
	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("RecordSale() error = %v, want InsufficientStockError", err)
	}
	if insufficient.Available != 5 || insufficient.Requested != 6 {
		t.Fatalf("unexpected error detail: %+v", insufficient)
	}

	status, err := s.StockByID(ctx, fx.milkABC)
	if err != nil {
		t.Fatalf("StockByID() error = %v", err)
	}
	if status.StockQuantity != 5 {
		t.Fatalf("stock changed on failed sale: %d", status.StockQuantity)
	}

	count, err := s.db.NewSelect().Model((*Order)(nil)).Count(ctx)
	if err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Fatalf("order written for failed sale: %d rows", count)
	}
}

func TestRecordSaleInactiveProduct(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	fx := seedCatalog(t, s)

	_, err := s.RecordSale(context.Background(), OrderInput{
		ProductID:     fx.nightFeed,
		CustomerEmail: "buyer@example.com",
		Quantity:      1,
		UnitPrice:     120000,
		TotalAmount:   120000,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("RecordSale() error = %v, want ErrNotFound", err)
	}
}

func TestRecordSaleValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newTestStore(t)
	fx := seedCatalog(t, s)

	if _, err := s.RecordSale(ctx, OrderInput{ProductID: fx.milkA, CustomerEmail: "a@b.c", Quantity: 0}); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero quantity: error = %v, want ErrValidation", err)
	}
	if _, err := s.RecordSale(ctx, OrderInput{ProductID: fx.milkA, CustomerEmail: "  ", Quantity: 1}); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank email: error = %v, want ErrValidation", err)
	}
}

func TestDeleteBrandLeavesProductsDangling(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newTestStore(t)
	fx := seedCatalog(t, s)

	if err := s.DeleteBrand(ctx, fx.brandX); err != nil {
		t.Fatalf("DeleteBrand() error = %v", err)
	}

	detail, err := s.ProductDetail(ctx, fx.milkA)
	if err != nil {
		t.Fatalf("ProductDetail() error = %v", err)
	}
	if detail.BrandName != nil {
		t.Fatalf("brand name should be nil after brand delete, got %q", *detail.BrandName)
	}
	if detail.BrandID == nil || *detail.BrandID != fx.brandX {
		t.Fatalf("brand_id should keep the dangling reference, got %v", detail.BrandID)
	}
}
