package ingest

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// ProductRow is one product line of an import file.
type ProductRow struct {
	// Row is the 1-based data row the values came from.
	Row int `mapstructure:"-"`

	Name         string           `mapstructure:"name"`
	SKU          string           `mapstructure:"sku"`
	Category     string           `mapstructure:"category"`
	Description  string           `mapstructure:"description"`
	Price        *decimal.Decimal `mapstructure:"price"`
	Stock        *int             `mapstructure:"stock"`
	ReorderLevel *int             `mapstructure:"reorder_level"`
	Supplier     string           `mapstructure:"supplier"`
}

// RowError describes why one data row could not be used.
// Row is 1-based and counts data rows only.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// header aliases seen in exported inventory sheets
var headerAliases = map[string]string{
	"product":       "name",
	"product_name":  "name",
	"item":          "name",
	"unit_price":    "price",
	"quantity":      "stock",
	"qty":           "stock",
	"reorder":       "reorder_level",
	"reorder_point": "reorder_level",
	"vendor":        "supplier",
}

// NormalizeHeader maps "Reorder Level", "reorder-level" and "REORDER_LEVEL" to "reorder_level".
func NormalizeHeader(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(key)
	for strings.Contains(key, "__") {
		key = strings.ReplaceAll(key, "__", "_")
	}
	if alias, ok := headerAliases[key]; ok {
		return alias
	}
	return key
}

// DecodeProductRows decodes every row, collecting failures instead of stopping at the first one.
func DecodeProductRows(rows []map[string]string) ([]ProductRow, []RowError) {
	products := make([]ProductRow, 0, len(rows))
	var failures []RowError

	for i, raw := range rows {
		product, err := DecodeProductRow(raw)
		if err != nil {
			failures = append(failures, RowError{Row: i + 1, Message: err.Error()})
			continue
		}
		product.Row = i + 1
		products = append(products, product)
	}
	return products, failures
}

// DecodeProductRow weakly decodes one row. Blank cells count as absent.
func DecodeProductRow(raw map[string]string) (ProductRow, error) {
	input := make(map[string]interface{}, len(raw))
	for key, value := range raw {
		if value = strings.TrimSpace(value); value != "" {
			input[NormalizeHeader(key)] = value
		}
	}

	var row ProductRow
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToDecimalHook,
			stringToIntHook,
		),
		WeaklyTypedInput: true,
		Result:           &row,
	})
	if err != nil {
		return ProductRow{}, err
	}
	if err := decoder.Decode(input); err != nil {
		return ProductRow{}, unwrapDecodeError(err)
	}

	if row.Name == "" {
		return ProductRow{}, fmt.Errorf("name is required")
	}
	if row.Price == nil {
		return ProductRow{}, fmt.Errorf("price is required")
	}
	if row.Price.IsNegative() {
		return ProductRow{}, fmt.Errorf("price must not be negative")
	}
	if row.Stock != nil && *row.Stock < 0 {
		return ProductRow{}, fmt.Errorf("stock must not be negative")
	}
	if row.ReorderLevel != nil && *row.ReorderLevel < 0 {
		return ProductRow{}, fmt.Errorf("reorder_level must not be negative")
	}
	return row, nil
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

func stringToDecimalHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != decimalType {
		return data, nil
	}
	s := strings.NewReplacer(",", "", "$", "").Replace(data.(string))
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%q is not a valid amount", data)
	}
	return d, nil
}

func stringToIntHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Int {
		return data, nil
	}
	s := strings.TrimSpace(data.(string))
	// avoid octal interpretation of zero padded cells
	if trimmed := strings.TrimLeft(s, "0"); trimmed != "" && trimmed != s {
		s = trimmed
	}
	n, err := cast.ToIntE(s)
	if err != nil {
		return nil, fmt.Errorf("%q is not a whole number", data)
	}
	return n, nil
}

func unwrapDecodeError(err error) error {
	if merr, ok := err.(*mapstructure.Error); ok && len(merr.Errors) > 0 {
		return fmt.Errorf("%s", strings.Join(merr.Errors, "; "))
	}
	return err
}
