package models

import (
	"fmt"
	"io"
)

const EventPaid = "paid"

// PaidEvent is pushed to every connected cashier display once an invoice is paid.
type PaidEvent struct {
	InvoiceID string  `json:"invoiceId"`
	Amount    float64 `json:"amount"`
	TS        int64   `json:"ts"`
}

func NewPaidEvent(res PayResult) PaidEvent {
	return PaidEvent{
		InvoiceID: res.InvoiceID,
		Amount:    res.Amount.InexactFloat64(),
		TS:        res.PaidAt.UnixMilli(),
	}
}

// Message is an encoded server-sent event. Data holds the JSON payload and
// must not contain newlines.
type Message struct {
	Name string
	Data []byte
}

// WriteTo writes the message in text/event-stream framing.
func (m Message) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", m.Name, m.Data)
	return int64(n), err
}

func (m Message) String() string {
	return fmt.Sprintf("event: %s\ndata: %s\n\n", m.Name, m.Data)
}
