package tool

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/trungdn/milk-sell-agent/store/catalog"
)

func ptr[T any](v T) *T { return &v }

func newToolStore(t *testing.T) *catalog.Store {
	t.Helper()

	s := catalog.NewStore(catalog.Config{DSN: filepath.Join(t.TempDir(), "catalog.db")})
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedProduct(t *testing.T, s *catalog.Store, in catalog.ProductInput) int64 {
	t.Helper()

	id, err := s.CreateProduct(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateProduct(%s) error = %v", in.Name, err)
	}
	return id
}

func TestRegistryListsAllTools(t *testing.T) {
	t.Parallel()

	store := newToolStore(t)
	registry := NewRegistry(store, NewSale(store, &fakeMailer{}))

	infos := registry.Infos()
	if len(infos) != 20 {
		t.Fatalf("expected 20 tools, got %d", len(infos))
	}
	if infos[0].Name != ToolFindProducts {
		t.Fatalf("unexpected first tool: %s", infos[0].Name)
	}
	if infos[len(infos)-1].Name != ToolPurchaseProduct {
		t.Fatalf("unexpected last tool: %s", infos[len(infos)-1].Name)
	}

	tools := registry.OpenAITools()
	if len(tools) != 20 {
		t.Fatalf("expected 20 openai tools, got %d", len(tools))
	}
}

func TestRegistryWithoutSaleOmitsPurchase(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(newToolStore(t), nil)
	for _, info := range registry.Infos() {
		if info.Name == ToolPurchaseProduct {
			t.Fatal("purchase tool registered without a sale workflow")
		}
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(newToolStore(t), nil)
	out, err := registry.Execute(context.Background(), "no_such_tool", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Tool != "no_such_tool" || out.Error == "" {
		t.Fatalf("expected tool error result, got %+v", out)
	}
}

func TestExecuteMissingArgument(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(newToolStore(t), nil)
	out, err := registry.Execute(context.Background(), ToolFindProducts, map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Error != "search_text is required" {
		t.Fatalf("unexpected error message: %q", out.Error)
	}
}

func TestExecuteWrongArgumentType(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(newToolStore(t), nil)
	out, err := registry.Execute(context.Background(), ToolFindProducts, map[string]any{"search_text": 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Error != "search_text must be a string" {
		t.Fatalf("unexpected error message: %q", out.Error)
	}
}

func TestExecuteFindProducts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newToolStore(t)
	seedProduct(t, store, catalog.ProductInput{Name: "Milk A", PricePerUnit: ptr(100000.0), StockQuantity: 4})

	registry := NewRegistry(store, nil)
	out, err := registry.Execute(ctx, ToolFindProducts, map[string]any{"search_text": "Milk"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Error != "" {
		t.Fatalf("unexpected tool error: %s", out.Error)
	}
	rows, ok := out.Result.([]catalog.ProductSummary)
	if !ok {
		t.Fatalf("unexpected result type: %T", out.Result)
	}
	if len(rows) != 1 || rows[0].Name != "Milk A" {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}

func TestExecuteGetProductInfoMissingProduct(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(newToolStore(t), nil)
	out, err := registry.Execute(context.Background(), ToolGetProductInfo, map[string]any{"product_id": float64(999)})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	result, ok := out.Result.(map[string]any)
	if !ok {
		t.Fatalf("unexpected result type: %T", out.Result)
	}
	if len(result) != 0 {
		t.Fatalf("expected empty result for missing product, got %v", result)
	}
}

func TestExecuteStockByNameMissingProduct(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(newToolStore(t), nil)
	out, err := registry.Execute(context.Background(), ToolGetStockByProductName, map[string]any{"product_name": "Ghost Milk"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	result, ok := out.Result.(map[string]any)
	if !ok {
		t.Fatalf("unexpected result type: %T", out.Result)
	}
	if result["error"] != "Product 'Ghost Milk' not found" {
		t.Fatalf("unexpected result: %v", result)
	}
}

func TestExecutePropagatesStorageFailures(t *testing.T) {
	t.Parallel()

	// The store was never connected, so every query must fail the turn.
	registry := NewRegistry(catalog.NewStore(catalog.Config{DSN: "unused.db"}), nil)
	_, err := registry.Execute(context.Background(), ToolFindProducts, map[string]any{"search_text": "Milk"})
	if !errors.Is(err, catalog.ErrNotConnected) {
		t.Fatalf("Execute() error = %v, want ErrNotConnected", err)
	}
}
