package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sync"
	"time"

	"pos-relay/internal/status"
	"pos-relay/models"
	"pos-relay/monitoring"
	"pos-relay/utils"

	"github.com/shopspring/decimal"
)

const (
	InvoicePrefix  = "INV-"
	invoiceCodeLen = 8
	maxIDAttempts  = 5
)

var invoiceIDPattern = regexp.MustCompile(`^INV-[0-9A-Z]{8}$`)

// IsValidInvoiceID reports whether id has the shape of an issued invoice id.
func IsValidInvoiceID(id string) bool {
	return invoiceIDPattern.MatchString(id)
}

// InvoiceService owns every invoice record. It is the only writer; all
// reads and writes go through mu so a pay attempt checks and flips the
// status in one critical section.
type InvoiceService struct {
	mu       sync.RWMutex
	invoices map[string]*models.Invoice

	now     func() time.Time
	newCode func() (string, error)
	monitor *monitoring.Monitor
	logger  *slog.Logger
}

func NewInvoiceService(monitor *monitoring.Monitor, logger *slog.Logger) *InvoiceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceService{
		invoices: make(map[string]*models.Invoice),
		now:      time.Now,
		newCode: func() (string, error) {
			return utils.GenerateCode(invoiceCodeLen, utils.CodeCharset)
		},
		monitor: monitor,
		logger:  logger,
	}
}

// CreateInvoice registers a new OPEN invoice. source is only used for
// metrics ("scan" or "api").
func (s *InvoiceService) CreateInvoice(ctx context.Context, source string) (models.Invoice, error) {
	select {
	case <-ctx.Done():
		return models.Invoice{}, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return models.Invoice{}, fmt.Errorf("generate invoice id: %w", err)
		}

		id := InvoicePrefix + code
		if _, exists := s.invoices[id]; exists {
			s.logger.Warn("invoice id collision, retrying", "invoiceId", id, "attempt", attempt+1)
			continue
		}

		inv := &models.Invoice{
			ID:        id,
			Status:    models.InvoiceStatusOpen,
			CreatedAt: s.now(),
		}
		s.invoices[id] = inv
		s.monitor.TrackInvoiceCreated(source)

		s.logger.Info("invoice created", "invoiceId", id, "source", source)
		return *inv, nil
	}

	return models.Invoice{}, status.ErrIDExhausted
}

func (s *InvoiceService) GetInvoice(ctx context.Context, id string) (models.Invoice, error) {
	select {
	case <-ctx.Done():
		return models.Invoice{}, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[id]
	if !ok {
		return models.Invoice{}, fmt.Errorf("get %q: %w", id, status.ErrInvoiceNotFound)
	}
	return copyInvoice(inv), nil
}

// PayInvoice performs the single OPEN -> PAID transition. A paid invoice
// answers AlreadyPaid without looking at amount; amount is only validated
// when it is about to be recorded. Among racing callers exactly one gets a
// non-AlreadyPaid result and only its amount is stored.
func (s *InvoiceService) PayInvoice(ctx context.Context, id string, amount decimal.Decimal) (models.PayResult, error) {
	select {
	case <-ctx.Done():
		return models.PayResult{}, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id]
	if !ok {
		s.monitor.TrackPayment("not_found")
		return models.PayResult{}, fmt.Errorf("pay %q: %w", id, status.ErrInvoiceNotFound)
	}

	if inv.IsPaid() {
		s.monitor.TrackPayment("already_paid")
		return models.PayResult{InvoiceID: id, AlreadyPaid: true}, nil
	}

	if !isPayableAmount(amount) {
		s.monitor.TrackPayment("invalid_amount")
		return models.PayResult{}, fmt.Errorf("pay %q with %s: %w", id, amount, status.ErrInvalidAmount)
	}

	paidAt := s.now()
	inv.Status = models.InvoiceStatusPaid
	inv.Amount = amount
	inv.PaidAt = &paidAt
	s.monitor.TrackPayment("paid")

	s.logger.Info("invoice paid", "invoiceId", id, "amount", amount.String())
	return models.PayResult{
		InvoiceID: id,
		Amount:    amount,
		PaidAt:    paidAt,
	}, nil
}

// isPayableAmount reports whether amount is positive once reduced to the
// float64 every JSON response and event carries. Values that overflow to
// Inf or underflow to 0 are refused.
func isPayableAmount(amount decimal.Decimal) bool {
	if !amount.IsPositive() {
		return false
	}
	f, _ := amount.Float64()
	return !math.IsInf(f, 0) && !math.IsNaN(f) && f > 0
}

type InvoiceStats struct {
	Open int `json:"open"`
	Paid int `json:"paid"`
}

func (s *InvoiceService) Stats() InvoiceStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats InvoiceStats
	for _, inv := range s.invoices {
		if inv.IsPaid() {
			stats.Paid++
		} else {
			stats.Open++
		}
	}
	return stats
}

func copyInvoice(inv *models.Invoice) models.Invoice {
	out := *inv
	if inv.PaidAt != nil {
		paidAt := *inv.PaidAt
		out.PaidAt = &paidAt
	}
	return out
}
