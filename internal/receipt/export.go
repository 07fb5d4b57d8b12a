package receipt

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// FormatMoney renders an amount as $X.YZ, rounding the binary value the way
// %.2f does everywhere else
func FormatMoney(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

// SummaryText renders the shareable plain text summary of a split
func SummaryText(r *Receipt) string {
	var b strings.Builder
	b.WriteString("Receipt Split Summary\n\n")
	fmt.Fprintf(&b, "Restaurant: %s\n", r.Vendor)
	fmt.Fprintf(&b, "Date: %s\n", r.Date)
	fmt.Fprintf(&b, "Total: %s\n\n", FormatMoney(r.Total()))

	b.WriteString("What Each Person Owes:\n")
	for _, share := range r.PersonBreakdown() {
		fmt.Fprintf(&b, "- %s: %s\n", share.Person, FormatMoney(share.Total))
	}
	return b.String()
}

// SplitCSV renders the Person,Amount export of a split
func SplitCSV(r *Receipt) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Person", "Amount"}); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}
	for _, share := range r.PersonBreakdown() {
		if err := w.Write([]string{share.Person, FormatMoney(share.Total)}); err != nil {
			return nil, fmt.Errorf("writing csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}
