// Package totals computes document money totals with decimal arithmetic.
package totals

import "github.com/shopspring/decimal"

// DefaultTaxRate is the percentage applied when a document carries none.
var DefaultTaxRate = decimal.NewFromInt(18)

var hundred = decimal.NewFromInt(100)

// Line is one priced quantity.
type Line struct {
	Quantity  int64
	UnitPrice decimal.Decimal
}

// Result holds the derived amounts of a document.
type Result struct {
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	TaxRate   decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// LineTotal returns quantity × unitPrice rounded to cents.
func LineTotal(quantity int64, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(quantity)).Round(2)
}

// Calculate applies subtotal = Σ q×p, tax = (subtotal − discount) × rate / 100,
// total = subtotal − discount + tax. Every amount is rounded to 2 decimals.
func Calculate(lines []Line, taxRate, discount decimal.Decimal) Result {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(LineTotal(l.Quantity, l.UnitPrice))
	}
	discount = discount.Round(2)
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(taxRate).Div(hundred).Round(2)
	return Result{
		Subtotal:  subtotal,
		Discount:  discount,
		TaxRate:   taxRate,
		TaxAmount: tax,
		Total:     taxable.Add(tax),
	}
}
