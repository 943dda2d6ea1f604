// Command seed loads the milk catalog from a consultation CSV export.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	configx "github.com/trungdn/milk-sell-agent/pkg/config"
	logx "github.com/trungdn/milk-sell-agent/pkg/logger"
	_ "github.com/trungdn/milk-sell-agent/pkg/logger/autoload"
	"github.com/trungdn/milk-sell-agent/store/catalog"
)

type summary struct {
	categories int
	brands     int
	products   int
	skipped    int
}

func main() {
	log := logx.Component("seed")

	csvPath := flag.String("csv", "data/csv/milk_consultation.csv", "path to the catalog csv export")
	storeCfg := configx.MustNew[catalog.Config]("CATALOG")

	ctx := context.Background()
	store := catalog.NewStore(*storeCfg)
	if err := store.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("catalog connect failed")
	}
	defer store.Close()

	file, err := os.Open(*csvPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open csv failed")
	}
	defer file.Close()

	result, err := seed(ctx, store, file, log)
	if err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}
	log.Info().
		Int("categories", result.categories).
		Int("brands", result.brands).
		Int("products", result.products).
		Int("skipped", result.skipped).
		Msg("seeding completed")
}

// seed walks the CSV row by row. Categories and brands repeat across
// product rows, so they are created once and memoized; a bad row is
// logged and skipped rather than aborting the load.
func seed(ctx context.Context, store *catalog.Store, src io.Reader, log zerolog.Logger) (summary, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return summary{}, fmt.Errorf("read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"category_name", "brand_name", "product_name"} {
		if _, ok := col[required]; !ok {
			return summary{}, fmt.Errorf("csv is missing column %q", required)
		}
	}

	categories := map[string]int64{}
	brands := map[string]int64{}
	var out summary

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("read csv line %d: %w", line, err)
		}

		field := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		if err := seedRow(ctx, store, field, categories, brands, &out); err != nil {
			log.Warn().Err(err).Int("line", line).Msg("row skipped")
			out.skipped++
			continue
		}
		out.products++
	}

	return out, nil
}

func seedRow(ctx context.Context, store *catalog.Store, field func(string) string, categories, brands map[string]int64, out *summary) error {
	categoryName := field("category_name")
	categoryKey := field("category_id") + "/" + categoryName
	categoryID, ok := categories[categoryKey]
	if !ok {
		id, err := store.CreateCategory(ctx, catalog.CategoryInput{
			Name:        categoryName,
			Description: optional(field("category_description")),
		})
		if err != nil {
			return fmt.Errorf("create category %q: %w", categoryName, err)
		}
		categories[categoryKey] = id
		categoryID = id
		out.categories++
	}

	brandName := field("brand_name")
	brandKey := field("brand_id") + "/" + brandName
	brandID, ok := brands[brandKey]
	if !ok {
		premium, err := boolField("is_premium", field("is_premium"))
		if err != nil {
			return err
		}
		id, err := store.CreateBrand(ctx, catalog.BrandInput{
			Name:      brandName,
			Country:   optional(field("country_of_origin")),
			IsPremium: premium,
		})
		if err != nil {
			return fmt.Errorf("create brand %q: %w", brandName, err)
		}
		brands[brandKey] = id
		brandID = id
		out.brands++
	}

	productName := field("product_name")
	input := catalog.ProductInput{
		Name:            productName,
		SKU:             optional(field("sku")),
		CategoryID:      &categoryID,
		BrandID:         &brandID,
		Description:     optional(field("product_description")),
		MainIngredients: optional(field("main_ingredients")),
	}
	var err error
	if input.PackageSizeML, err = intField("package_size_ml", field("package_size_ml")); err != nil {
		return err
	}
	if input.AgeRangeFrom, err = intField("age_range_from", field("age_range_from")); err != nil {
		return err
	}
	if input.AgeRangeTo, err = intField("age_range_to", field("age_range_to")); err != nil {
		return err
	}
	if input.PricePerUnit, err = floatField("price_per_unit", field("price_per_unit")); err != nil {
		return err
	}
	if v, err := intField("discount_percent", field("discount_percent")); err != nil {
		return err
	} else if v != nil {
		input.DiscountPercent = *v
	}
	if v, err := intField("stock_quantity", field("stock_quantity")); err != nil {
		return err
	} else if v != nil {
		input.StockQuantity = *v
	}

	if _, err := store.CreateProduct(ctx, input); err != nil {
		return fmt.Errorf("create product %q: %w", productName, err)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// intField tolerates the float rendering spreadsheet exports give whole
// numbers ("12.0").
func intField(name, s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", name, err)
	}
	v := int(f)
	return &v, nil
}

func floatField(name, s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", name, err)
	}
	return &f, nil
}

func boolField(name, s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	if v, err := strconv.ParseBool(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false, fmt.Errorf("column %s: %w", name, err)
	}
	return f != 0, nil
}
