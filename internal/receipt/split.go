package receipt

// PersonShare is one person's part of the bill
type PersonShare struct {
	Person    string  `json:"person"`
	Base      float64 `json:"base"`      // sum of item shares before tax and tip
	Surcharge float64 `json:"surcharge"` // proportional share of tax and tip
	Total     float64 `json:"total"`
}

// PersonTotals computes what each assigned person owes. Tax and tip are
// distributed in proportion to each person's share of the subtotal; when the
// subtotal is zero nothing is distributed. People with no items are absent.
// Amounts are not rounded.
func (r *Receipt) PersonTotals() map[string]float64 {
	shares := r.PersonBreakdown()
	totals := make(map[string]float64, len(shares))
	for _, share := range shares {
		totals[share.Person] = share.Total
	}
	return totals
}

// PersonBreakdown returns each person's share in the order they were first
// seen across the items
func (r *Receipt) PersonBreakdown() []PersonShare {
	var order []string
	base := make(map[string]float64)

	for _, item := range r.Items {
		perPerson := item.PricePerPerson()
		for _, person := range item.AssignedTo {
			if _, seen := base[person]; !seen {
				order = append(order, person)
			}
			base[person] += perPerson
		}
	}

	extra := r.Tax + r.Tip
	shares := make([]PersonShare, 0, len(order))
	for _, person := range order {
		share := PersonShare{Person: person, Base: base[person]}
		if r.Subtotal > 0 {
			share.Surcharge = (share.Base / r.Subtotal) * extra
		}
		share.Total = share.Base + share.Surcharge
		shares = append(shares, share)
	}
	return shares
}
