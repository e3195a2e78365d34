// Package coerce maps the untrusted structured-fields object onto the strict
// invoice schema. Nothing in here returns an error: any value that cannot be
// understood degrades to null, preserving the rest of the record.
package coerce

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/scandoc/invoice-ocr/constants"
	"github.com/scandoc/invoice-ocr/internal/entity"
)

var reNumeral = regexp.MustCompile(`-?\d+(\.\d+)?`)

// Coercer converts loosely-typed JSON values into typed invoice fields.
type Coercer struct {
	Logger *slog.Logger

	// CorrectDecimals switches the float extractor to locale-aware decimal
	// normalization. Off by default: the naive comma-to-period substitution
	// mis-reads thousands-separated numbers ("1,234.56" -> 1.234) and that
	// behavior is preserved for compatibility unless this flag is set.
	CorrectDecimals bool
}

func New(logger *slog.Logger) *Coercer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coercer{Logger: logger}
}

// Coerce builds the invoice record and its line items from the parsed
// structured-fields object. Lists under Description fan out to one item per
// entry, zipped positionally against Quantity / Unit Price / Amount; a
// scalar Description yields one item; a record with none of the item-level
// keys yields none.
func (c *Coercer) Coerce(fields map[string]any) (entity.Invoice, []entity.InvoiceItem) {
	inv := entity.Invoice{
		CompanyName:     c.text(fields[constants.FieldCompanyName]),
		CompanyAddress:  c.text(fields[constants.FieldCompanyAddress]),
		CustomerName:    c.text(fields[constants.FieldCustomerName]),
		CustomerAddress: c.text(fields[constants.FieldCustomerAddress]),
		InvoiceNumber:   c.text(fields[constants.FieldInvoiceNumber]),
		InvoiceDate:     c.text(fields[constants.FieldInvoiceDate]),
		DueDate:         c.text(fields[constants.FieldDueDate]),
		TotalAmount:     c.LenientFloat(fields[constants.FieldTotal]),
		Taxes:           c.LenientFloat(fields[constants.FieldTaxes]),
	}
	return inv, c.items(fields)
}

func (c *Coercer) items(fields map[string]any) []entity.InvoiceItem {
	desc := fields[constants.FieldDescription]

	if list, ok := desc.([]any); ok {
		quantities := asList(fields[constants.FieldQuantity])
		prices := asList(fields[constants.FieldUnitPrice])
		amounts := asList(fields[constants.FieldAmount])

		items := make([]entity.InvoiceItem, 0, len(list))
		for i, d := range list {
			items = append(items, entity.InvoiceItem{
				Description: c.text(d),
				Quantity:    c.LenientFloat(at(quantities, i)),
				UnitPrice:   c.LenientFloat(at(prices, i)),
				Amount:      c.LenientFloat(at(amounts, i)),
			})
		}
		return items
	}

	// Scalar path: one item, but only when the object carries at least one
	// item-level key. An empty structured object produces no items.
	if !hasAny(fields,
		constants.FieldDescription,
		constants.FieldQuantity,
		constants.FieldUnitPrice,
		constants.FieldAmount,
	) {
		return nil
	}
	return []entity.InvoiceItem{{
		Description: c.text(desc),
		Quantity:    c.LenientFloat(fields[constants.FieldQuantity]),
		UnitPrice:   c.LenientFloat(fields[constants.FieldUnitPrice]),
		Amount:      c.LenientFloat(fields[constants.FieldAmount]),
	}}
}

// LenientFloat scans a loosely-typed value for a usable floating number.
// JSON numbers pass through directly; strings are normalized (decimal commas
// to periods) and scanned for the first numeral-looking substring; anything
// else is null. Never fails.
func (c *Coercer) LenientFloat(v any) *float64 {
	switch t := v.(type) {
	case float64:
		f := t
		return &f
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		if c.CorrectDecimals {
			s = normalizeDecimal(s)
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
		m := reNumeral.FindString(s)
		if m == "" {
			return nil
		}
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// text coerces a value to a nullable string field. Numbers are formatted,
// empty or unusable values become null.
func (c *Coercer) text(v any) *string {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		return &s
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		return &s
	default:
		return nil
	}
}

// normalizeDecimal detects the locale pattern before substituting: the
// later of '.' and ',' is taken as the decimal separator and the other is
// stripped as a thousands separator.
func normalizeDecimal(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		return strings.ReplaceAll(s, ",", ".")
	case lastComma >= 0 && lastDot >= 0:
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		// A lone comma followed by exactly 1-2 digits reads as a decimal
		// mark; otherwise commas are thousands separators.
		tail := s[lastComma+1:]
		if n := len(strings.TrimRight(tail, " ")); n >= 1 && n <= 2 && strings.Count(s, ",") == 1 {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	default:
		return s
	}
}

func asList(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	return nil
}

func at(list []any, i int) any {
	if i < 0 || i >= len(list) {
		return nil
	}
	return list[i]
}

func hasAny(fields map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := fields[k]; ok {
			return true
		}
	}
	return false
}
