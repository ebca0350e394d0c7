package domain

// BasisPointsDenominator expresses rates in hundredths of a percent (500 = 5%).
const BasisPointsDenominator int64 = 10_000

// PricingPolicy holds the shop wide pricing constants applied at checkout.
type PricingPolicy struct {
	Currency       string
	DeliveryFee    int64
	VATBasisPoints int64
}

// PricedLine is the input to the pricing calculation for a single order line.
type PricedLine struct {
	UnitPrice int64
	Quantity  int
}

// LineTotal multiplies unit price by quantity.
func (l PricedLine) LineTotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Price computes order totals. VAT is applied to subtotal plus delivery fee and rounded half up
// to the nearest minor unit.
func (p PricingPolicy) Price(lines []PricedLine, fulfillment FulfillmentType) OrderPricing {
	var subtotal int64
	for _, line := range lines {
		subtotal += line.LineTotal()
	}
	var deliveryFee int64
	if fulfillment == FulfillmentDelivery {
		deliveryFee = p.DeliveryFee
	}
	var discount int64
	vat := ApplyRate(subtotal-discount+deliveryFee, p.VATBasisPoints)
	return OrderPricing{
		Subtotal:    subtotal,
		Discount:    discount,
		DeliveryFee: deliveryFee,
		VAT:         vat,
		GrandTotal:  subtotal - discount + deliveryFee + vat,
	}
}

// ApplyRate returns amount*bps/10000 rounded half away from zero.
func ApplyRate(amount, bps int64) int64 {
	if amount == 0 || bps == 0 {
		return 0
	}
	product := amount * bps
	half := BasisPointsDenominator / 2
	if product < 0 {
		return -((-product + half) / BasisPointsDenominator)
	}
	return (product + half) / BasisPointsDenominator
}
