package receipt

import (
	"errors"
	"slices"
)

// ErrInvalidTip is returned when a tip amount or percentage is negative
var ErrInvalidTip = errors.New("tip must not be negative")

// LineItem represents one purchasable entry on a receipt
type LineItem struct {
	Name       string   `json:"name"`
	Price      float64  `json:"price"`
	Quantity   int      `json:"quantity"` // informational only, never multiplied into Price
	AssignedTo []string `json:"assigned_to"`
}

// NewLineItem creates an unassigned line item
func NewLineItem(name string, price float64, quantity int) *LineItem {
	if quantity < 1 {
		quantity = 1
	}
	return &LineItem{
		Name:       name,
		Price:      price,
		Quantity:   quantity,
		AssignedTo: []string{},
	}
}

// AssignTo adds a person to the item. Assigning twice is a no-op.
func (i *LineItem) AssignTo(person string) {
	if !i.IsAssignedTo(person) {
		i.AssignedTo = append(i.AssignedTo, person)
	}
}

// UnassignFrom removes a person from the item. Removing an absent person is a no-op.
func (i *LineItem) UnassignFrom(person string) {
	if idx := slices.Index(i.AssignedTo, person); idx != -1 {
		i.AssignedTo = slices.Delete(i.AssignedTo, idx, idx+1)
	}
}

// IsAssignedTo reports whether the person shares this item
func (i *LineItem) IsAssignedTo(person string) bool {
	return slices.Contains(i.AssignedTo, person)
}

// PricePerPerson is the item price divided evenly among its assignees, or 0
// when nobody is assigned
func (i *LineItem) PricePerPerson() float64 {
	if len(i.AssignedTo) == 0 {
		return 0
	}
	return i.Price / float64(len(i.AssignedTo))
}

// Receipt holds the parsed line items and monetary totals of one bill
type Receipt struct {
	Items    []*LineItem `json:"items"`
	Date     string      `json:"date"`
	Vendor   string      `json:"vendor"`
	Subtotal float64     `json:"subtotal"`
	Tax      float64     `json:"tax"`
	Tip      float64     `json:"tip"`
}

// NewReceipt creates an empty receipt
func NewReceipt() *Receipt {
	return &Receipt{Items: []*LineItem{}}
}

// AddItem appends an item. No validation is done here.
func (r *Receipt) AddItem(item *LineItem) {
	r.Items = append(r.Items, item)
}

// Total returns subtotal + tax + tip
func (r *Receipt) Total() float64 {
	return r.Subtotal + r.Tax + r.Tip
}

// ItemsSubtotal sums the item prices
func (r *Receipt) ItemsSubtotal() float64 {
	var sum float64
	for _, item := range r.Items {
		sum += item.Price
	}
	return sum
}

// SetTipAmount sets a fixed tip
func (r *Receipt) SetTipAmount(amount float64) error {
	if amount < 0 {
		return ErrInvalidTip
	}
	r.Tip = amount
	return nil
}

// SetTipPercent sets the tip to a percentage of the subtotal
func (r *Receipt) SetTipPercent(percent float64) error {
	if percent < 0 {
		return ErrInvalidTip
	}
	r.Tip = r.Subtotal * (percent / 100)
	return nil
}

// UnassignedItems returns the items nobody has claimed yet
func (r *Receipt) UnassignedItems() []*LineItem {
	var items []*LineItem
	for _, item := range r.Items {
		if len(item.AssignedTo) == 0 {
			items = append(items, item)
		}
	}
	return items
}

// AssignUnassignedTo gives every unclaimed item to one person
func (r *Receipt) AssignUnassignedTo(person string) {
	for _, item := range r.UnassignedItems() {
		item.AssignTo(person)
	}
}

// AssignAllTo shares every item among all the given people
func (r *Receipt) AssignAllTo(people []string) {
	for _, item := range r.Items {
		for _, person := range people {
			item.AssignTo(person)
		}
	}
}

// UnassignEverywhere removes a person from every item
func (r *Receipt) UnassignEverywhere(person string) {
	for _, item := range r.Items {
		item.UnassignFrom(person)
	}
}

// SampleReceipt returns the synthetic receipt offered when scanning is
// unavailable. Its subtotal deliberately disagrees with the item prices.
func SampleReceipt() *Receipt {
	r := NewReceipt()
	r.Vendor = "Test Restaurant"
	r.Date = "2025-03-06"
	r.Subtotal = 45.00
	r.Tax = 3.60

	r.AddItem(NewLineItem("Burger", 12.99, 1))
	r.AddItem(NewLineItem("Pizza", 15.50, 1))
	r.AddItem(NewLineItem("Salad", 8.99, 1))
	r.AddItem(NewLineItem("Drink", 3.99, 2))

	return r
}
