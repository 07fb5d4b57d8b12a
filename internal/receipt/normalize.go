package receipt

import (
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-splitter/internal/scanning"
)

var (
	nonCurrencyChars = regexp.MustCompile(`[^\d.\-]`)
	nonDigitChars    = regexp.MustCompile(`\D`)
)

// ParseCurrency extracts an amount from OCR text such as "$1,234.56".
// Text that doesn't parse yields 0.
func ParseCurrency(text string) float64 {
	cleaned := nonCurrencyChars.ReplaceAllString(text, "")
	if cleaned == "" {
		return 0
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// ParseQuantity extracts a count from OCR text such as "2x", defaulting to 1
// when no digits are left or they do not parse
func ParseQuantity(text string) int {
	n, err := strconv.Atoi(nonDigitChars.ReplaceAllString(text, ""))
	if err != nil {
		return 1
	}
	return n
}

// Normalize builds a Receipt from an expense analysis. Malformed content never
// fails: unreadable values fall back to defaults and items without a name or
// a positive price are dropped.
func Normalize(result *scanning.AnalysisResult) *Receipt {
	r := NewReceipt()
	if result == nil {
		return r
	}

	for _, doc := range result.Documents {
		// Later fields of the same type win
		for _, field := range doc.SummaryFields {
			switch field.Type {
			case scanning.FieldVendorName:
				r.Vendor = field.Value
			case scanning.FieldReceiptDate:
				r.Date = field.Value
			case scanning.FieldSubtotal:
				r.Subtotal = ParseCurrency(field.Value)
			case scanning.FieldTax:
				r.Tax = ParseCurrency(field.Value)
			}
		}

		for _, group := range doc.LineItemGroups {
			for _, line := range group.LineItems {
				if item := normalizeLineItem(line); item != nil {
					r.AddItem(item)
				}
			}
		}
	}

	if r.Subtotal == 0 && len(r.Items) > 0 {
		r.Subtotal = r.ItemsSubtotal()
	}

	return r
}

func normalizeLineItem(line scanning.LineItem) *LineItem {
	var (
		name     string
		price    float64
		quantity = 1
	)
	for _, field := range line.Fields {
		switch field.Type {
		case scanning.FieldItem:
			name = field.Value
		case scanning.FieldPrice:
			price = ParseCurrency(field.Value)
		case scanning.FieldQuantity:
			quantity = ParseQuantity(field.Value)
		}
	}

	if name == "" || price <= 0 {
		return nil
	}
	return NewLineItem(name, price, quantity)
}
