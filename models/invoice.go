package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusOpen InvoiceStatus = "OPEN"
	InvoiceStatusPaid InvoiceStatus = "PAID"
)

// Invoice is a single payment attempt created by a scan. Amount and PaidAt
// stay empty until the one OPEN -> PAID transition. It is never encoded
// directly; the API renders it through InvoiceView.
type Invoice struct {
	ID        string
	Status    InvoiceStatus
	Amount    decimal.Decimal
	CreatedAt time.Time
	PaidAt    *time.Time
}

func (i Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}

// PayResult is what a pay attempt observed. AlreadyPaid is set when the
// invoice had been paid before this call and nothing was changed.
type PayResult struct {
	InvoiceID   string
	AlreadyPaid bool
	Amount      decimal.Decimal
	PaidAt      time.Time
}

// InvoiceView is the JSON shape returned by the invoice API. Timestamps are
// unix milliseconds, which is what the cashier and pay pages read.
type InvoiceView struct {
	OK        bool          `json:"ok"`
	InvoiceID string        `json:"invoiceId"`
	Status    InvoiceStatus `json:"status"`
	Amount    *float64      `json:"amount"`
	CreatedAt int64         `json:"createdAt"`
	PaidAt    *int64        `json:"paidAt"`
}

func NewInvoiceView(inv Invoice) InvoiceView {
	view := InvoiceView{
		OK:        true,
		InvoiceID: inv.ID,
		Status:    inv.Status,
		CreatedAt: inv.CreatedAt.UnixMilli(),
	}
	if inv.IsPaid() {
		amount := inv.Amount.InexactFloat64()
		paidAt := inv.PaidAt.UnixMilli()
		view.Amount = &amount
		view.PaidAt = &paidAt
	}
	return view
}
