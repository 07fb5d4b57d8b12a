package receipt

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const tolerance = 1e-6

var _ = Describe("LineItem", func() {
	var item *LineItem

	BeforeEach(func() {
		item = NewLineItem("Pizza", 15.50, 1)
	})

	Describe("PricePerPerson", func() {
		It("is zero when nobody is assigned", func() {
			Expect(item.PricePerPerson()).To(BeZero())
		})

		It("is the full price for one person", func() {
			item.AssignTo("Alice")
			Expect(item.PricePerPerson()).To(BeNumerically("~", 15.50, tolerance))
		})

		It("divides the price among assignees", func() {
			item.AssignTo("Alice")
			item.AssignTo("Bob")
			item.AssignTo("Carol")
			Expect(item.PricePerPerson()).To(BeNumerically("~", 15.50/3, tolerance))
		})

		It("reflects the current assignments", func() {
			item.AssignTo("Alice")
			item.AssignTo("Bob")
			item.UnassignFrom("Bob")
			Expect(item.PricePerPerson()).To(BeNumerically("~", 15.50, tolerance))
		})
	})

	Describe("AssignTo", func() {
		It("is idempotent", func() {
			item.AssignTo("Alice")
			item.AssignTo("Alice")
			Expect(item.AssignedTo).To(Equal([]string{"Alice"}))
		})

		It("keeps insertion order", func() {
			item.AssignTo("Bob")
			item.AssignTo("Alice")
			Expect(item.AssignedTo).To(Equal([]string{"Bob", "Alice"}))
		})
	})

	Describe("UnassignFrom", func() {
		It("is a no-op for an absent person", func() {
			item.AssignTo("Alice")
			item.UnassignFrom("Bob")
			Expect(item.AssignedTo).To(Equal([]string{"Alice"}))
		})

		It("removes the person", func() {
			item.AssignTo("Alice")
			item.AssignTo("Bob")
			item.UnassignFrom("Alice")
			Expect(item.IsAssignedTo("Alice")).To(BeFalse())
			Expect(item.AssignedTo).To(Equal([]string{"Bob"}))
		})
	})

	It("defaults a non-positive quantity to 1", func() {
		Expect(NewLineItem("Soda", 2, 0).Quantity).To(Equal(1))
	})
})

var _ = Describe("Receipt", func() {
	var r *Receipt

	BeforeEach(func() {
		r = NewReceipt()
	})

	Describe("Total", func() {
		It("is zero for an empty receipt", func() {
			Expect(r.Total()).To(BeZero())
		})

		It("adds subtotal, tax and tip", func() {
			r.Subtotal, r.Tax, r.Tip = 40, 3.2, 6
			Expect(r.Total()).To(BeNumerically("~", 49.2, tolerance))
		})
	})

	Describe("AddItem", func() {
		It("preserves order and does not validate", func() {
			r.AddItem(NewLineItem("A", 1, 1))
			r.AddItem(NewLineItem("", -3, 1))
			Expect(r.Items).To(HaveLen(2))
			Expect(r.Items[0].Name).To(Equal("A"))
		})
	})

	Describe("tip", func() {
		BeforeEach(func() {
			r.Subtotal = 40
		})

		It("sets a percentage of the subtotal", func() {
			Expect(r.SetTipPercent(15)).To(Succeed())
			Expect(r.Tip).To(BeNumerically("~", 6, tolerance))
		})

		It("sets a fixed amount", func() {
			Expect(r.SetTipAmount(5)).To(Succeed())
			Expect(r.Tip).To(Equal(5.0))
		})

		It("rejects negative values", func() {
			Expect(r.SetTipAmount(-1)).To(MatchError(ErrInvalidTip))
			Expect(r.SetTipPercent(-1)).To(MatchError(ErrInvalidTip))
			Expect(r.Tip).To(BeZero())
		})
	})

	Describe("assignment helpers", func() {
		BeforeEach(func() {
			r.AddItem(NewLineItem("A", 10, 1))
			r.AddItem(NewLineItem("B", 20, 1))
			r.Items[0].AssignTo("Alice")
		})

		It("lists unassigned items", func() {
			Expect(r.UnassignedItems()).To(ConsistOf(r.Items[1]))
		})

		It("assigns only unassigned items to one person", func() {
			r.AssignUnassignedTo("Bob")
			Expect(r.Items[0].AssignedTo).To(Equal([]string{"Alice"}))
			Expect(r.Items[1].AssignedTo).To(Equal([]string{"Bob"}))
		})

		It("assigns every item to everyone", func() {
			r.AssignAllTo([]string{"Alice", "Bob"})
			Expect(r.Items[0].AssignedTo).To(Equal([]string{"Alice", "Bob"}))
			Expect(r.Items[1].AssignedTo).To(Equal([]string{"Alice", "Bob"}))
		})

		It("unassigns a person everywhere", func() {
			r.AssignAllTo([]string{"Alice", "Bob"})
			r.UnassignEverywhere("Alice")
			Expect(r.Items[0].AssignedTo).To(Equal([]string{"Bob"}))
			Expect(r.Items[1].AssignedTo).To(Equal([]string{"Bob"}))
		})
	})

	Describe("PersonTotals", func() {
		var totals map[string]float64

		JustBeforeEach(func() {
			totals = r.PersonTotals()
		})

		When("splitting the sample dinner with an inconsistent subtotal", func() {
			BeforeEach(func() {
				r.Subtotal = 45.00
				r.Tax = 3.60
				burger := NewLineItem("Burger", 12.99, 1)
				burger.AssignTo("Alice")
				pizza := NewLineItem("Pizza", 15.50, 1)
				pizza.AssignTo("Alice")
				pizza.AssignTo("Bob")
				salad := NewLineItem("Salad", 8.99, 1)
				salad.AssignTo("Bob")
				r.AddItem(burger)
				r.AddItem(pizza)
				r.AddItem(salad)
			})

			It("includes only assigned people", func() {
				Expect(totals).To(HaveLen(2))
			})

			It("computes Alice's share from her base and the subtotal", func() {
				aliceBase := 12.99 + 7.75
				Expect(totals["Alice"]).To(BeNumerically("~", aliceBase+(aliceBase/45.00)*3.60, tolerance))
			})

			It("computes Bob's share from his base and the subtotal", func() {
				bobBase := 7.75 + 8.99
				Expect(totals["Bob"]).To(BeNumerically("~", bobBase+(bobBase/45.00)*3.60, tolerance))
			})

			It("does not reconcile against the total", func() {
				sum := totals["Alice"] + totals["Bob"]
				Expect(sum).To(BeNumerically("<", r.Total()))
			})
		})

		When("every item is assigned and the subtotal matches", func() {
			BeforeEach(func() {
				r.AddItem(NewLineItem("A", 12.99, 1))
				r.AddItem(NewLineItem("B", 15.50, 1))
				r.AddItem(NewLineItem("C", 8.99, 1))
				r.Items[0].AssignTo("Alice")
				r.Items[1].AssignTo("Alice")
				r.Items[1].AssignTo("Bob")
				r.Items[1].AssignTo("Carol")
				r.Items[2].AssignTo("Carol")
				r.Subtotal = r.ItemsSubtotal()
				r.Tax = 3.07
				Expect(r.SetTipPercent(18)).To(Succeed())
			})

			It("adds up to the receipt total", func() {
				var sum float64
				for _, amount := range totals {
					sum += amount
				}
				Expect(sum).To(BeNumerically("~", r.Total(), tolerance))
			})
		})

		When("the subtotal is zero", func() {
			BeforeEach(func() {
				r.Tax = 5
				r.Tip = 5
				r.AddItem(NewLineItem("A", 10, 1))
				r.Items[0].AssignTo("Alice")
				r.Items[0].AssignTo("Bob")
			})

			It("returns base shares without surcharge", func() {
				Expect(totals["Alice"]).To(BeNumerically("~", 5, tolerance))
				Expect(totals["Bob"]).To(BeNumerically("~", 5, tolerance))
			})
		})

		When("an item is unassigned", func() {
			BeforeEach(func() {
				r.AddItem(NewLineItem("A", 10, 1))
				r.AddItem(NewLineItem("B", 30, 1))
				r.Items[0].AssignTo("Alice")
				r.Subtotal = 40
				r.Tax = 4
			})

			It("leaves its cost unattributed", func() {
				Expect(totals).To(HaveLen(1))
				Expect(totals["Alice"]).To(BeNumerically("~", 11, tolerance))
			})
		})

		When("quantity is greater than one", func() {
			BeforeEach(func() {
				r.AddItem(NewLineItem("Drink", 3.99, 2))
				r.Items[0].AssignTo("Alice")
			})

			It("does not multiply the price", func() {
				Expect(totals["Alice"]).To(BeNumerically("~", 3.99, tolerance))
			})
		})

		When("nothing is assigned", func() {
			BeforeEach(func() {
				r.AddItem(NewLineItem("A", 10, 1))
				r.Subtotal = 10
			})

			It("returns an empty map", func() {
				Expect(totals).To(BeEmpty())
			})
		})
	})

	Describe("PersonBreakdown", func() {
		BeforeEach(func() {
			r.Subtotal = 20
			r.Tax = 2
			r.AddItem(NewLineItem("A", 10, 1))
			r.AddItem(NewLineItem("B", 10, 1))
			r.Items[0].AssignTo("Zed")
			r.Items[1].AssignTo("Amy")
		})

		It("orders people by first assignment", func() {
			shares := r.PersonBreakdown()
			Expect(shares).To(HaveLen(2))
			Expect(shares[0].Person).To(Equal("Zed"))
			Expect(shares[1].Person).To(Equal("Amy"))
		})

		It("separates base and surcharge", func() {
			share := r.PersonBreakdown()[0]
			Expect(share.Base).To(BeNumerically("~", 10, tolerance))
			Expect(share.Surcharge).To(BeNumerically("~", 1, tolerance))
			Expect(share.Total).To(BeNumerically("~", 11, tolerance))
		})
	})

	Describe("SampleReceipt", func() {
		It("carries the sample dinner", func() {
			sample := SampleReceipt()
			Expect(sample.Vendor).To(Equal("Test Restaurant"))
			Expect(sample.Subtotal).To(Equal(45.00))
			Expect(sample.Tax).To(Equal(3.60))
			Expect(sample.Items).To(HaveLen(4))
			Expect(sample.Items[3].Quantity).To(Equal(2))
		})
	})
})
