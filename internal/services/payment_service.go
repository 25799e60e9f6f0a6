package services

import (
	"context"
	"log/slog"

	"pos-relay/models"

	"github.com/shopspring/decimal"
)

// PaymentService records a payment and tells the cashier displays about it.
type PaymentService struct {
	invoices    *InvoiceService
	broadcaster *EventBroadcaster
	logger      *slog.Logger
}

func NewPaymentService(invoices *InvoiceService, broadcaster *EventBroadcaster, logger *slog.Logger) *PaymentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentService{
		invoices:    invoices,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Pay commits the payment and broadcasts a paid event. Repeat payments
// return AlreadyPaid and broadcast nothing. A failed broadcast is logged,
// the payment itself still stands.
func (s *PaymentService) Pay(ctx context.Context, invoiceID string, amount decimal.Decimal) (models.PayResult, error) {
	res, err := s.invoices.PayInvoice(ctx, invoiceID, amount)
	if err != nil || res.AlreadyPaid {
		return res, err
	}

	if err := s.broadcaster.Broadcast(ctx, models.EventPaid, models.NewPaidEvent(res)); err != nil {
		s.logger.Error("s.broadcaster.Broadcast()", "invoiceId", invoiceID, "error", err)
	}
	return res, nil
}
