package scanning

import (
	"context"
	"errors"
)

// ErrUnreadableDocument is returned when an upload cannot be decoded or
// converted locally. Retrying the same bytes cannot succeed.
var ErrUnreadableDocument = errors.New("unreadable document")

// Field type tags recognized on expense summary fields
const (
	FieldVendorName  = "VENDOR_NAME"
	FieldReceiptDate = "RECEIPT_DATE"
	FieldSubtotal    = "SUBTOTAL"
	FieldTax         = "TAX"
)

// Field type tags recognized on line item fields
const (
	FieldItem     = "ITEM"
	FieldPrice    = "PRICE"
	FieldQuantity = "QUANTITY"
)

// AnalysisResult is the semi-structured output of an expense analysis
type AnalysisResult struct {
	Documents []ExpenseDocument `json:"documents"`
}

// ExpenseDocument is one receipt or invoice found in the analyzed image
type ExpenseDocument struct {
	SummaryFields  []Field         `json:"summary_fields"`
	LineItemGroups []LineItemGroup `json:"line_item_groups"`
}

// LineItemGroup is a block of line items, usually one table on the receipt
type LineItemGroup struct {
	LineItems []LineItem `json:"line_items"`
}

// LineItem holds the raw fields detected for a single purchased entry
type LineItem struct {
	Fields []Field `json:"fields"`
}

// Field is a type tag and the raw text detected for it
type Field struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Extractor defines the interface for expense analysis services
type Extractor interface {
	// AnalyzeExpense sends a receipt image/PDF to the service and returns its raw analysis
	AnalyzeExpense(ctx context.Context, imageData []byte, contentType string) (*AnalysisResult, error)
	// Close closes the extractor and releases resources
	Close() error
}
