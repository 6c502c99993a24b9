package booking

import "github.com/shopspring/decimal"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentPaid      PaymentStatus = "Paid"
	PaymentUnderpaid PaymentStatus = "Underpaid"
)

// PaymentStatusOf mirrors the backend's rule: nothing paid is pending, an
// exact match is paid, any other amount is underpaid.
func PaymentStatusOf(total decimal.Decimal, paid *decimal.Decimal) PaymentStatus {
	if paid == nil {
		return PaymentPending
	}

	if paid.Equal(total) {
		return PaymentPaid
	}

	return PaymentUnderpaid
}

// Status prefers the status reported by the backend and derives it otherwise.
func (r BookingRecord) Status() PaymentStatus {
	if r.PaymentStatus != "" {
		return r.PaymentStatus
	}

	if r.TotalAmount == nil {
		return PaymentPending
	}

	return PaymentStatusOf(*r.TotalAmount, r.AmountPaid)
}
