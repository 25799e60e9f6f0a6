package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"pos-relay/internal/services"
	"pos-relay/internal/status"
	"pos-relay/models"

	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

const (
	codeNotFound      = "NOT_FOUND"
	codeInvalidAmount = "INVALID_AMOUNT"
	codeInternal      = "INTERNAL_ERROR"
)

type InvoiceHandler struct {
	invoices *services.InvoiceService
	payments *services.PaymentService
	payPage  string
	logger   *slog.Logger
}

func NewInvoiceHandler(invoices *services.InvoiceService, payments *services.PaymentService, payPage string, logger *slog.Logger) *InvoiceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceHandler{
		invoices: invoices,
		payments: payments,
		payPage:  payPage,
		logger:   logger,
	}
}

func (h *InvoiceHandler) payURL(invoiceID string) string {
	return h.payPage + "?invoice=" + url.QueryEscape(invoiceID)
}

// Scan - Static QR entry point: every scan opens a fresh invoice
func (h *InvoiceHandler) Scan(e *core.RequestEvent) error {
	inv, err := h.invoices.CreateInvoice(e.Request.Context(), "scan")
	if err != nil {
		h.logger.Error("h.invoices.CreateInvoice()", "source", "scan", "error", err)
		return errorJSON(e, http.StatusInternalServerError, codeInternal)
	}

	return e.Redirect(http.StatusFound, h.payURL(inv.ID))
}

// NewInvoice - Create an invoice from the cashier screen
func (h *InvoiceHandler) NewInvoice(e *core.RequestEvent) error {
	inv, err := h.invoices.CreateInvoice(e.Request.Context(), "api")
	if err != nil {
		h.logger.Error("h.invoices.CreateInvoice()", "source", "api", "error", err)
		return errorJSON(e, http.StatusInternalServerError, codeInternal)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"ok":        true,
		"invoiceId": inv.ID,
		"payUrl":    h.payURL(inv.ID),
	})
}

// GetInvoice - Invoice status for the pay page and the cashier
func (h *InvoiceHandler) GetInvoice(e *core.RequestEvent) error {
	invoiceID := e.Request.PathValue("id")
	if !services.IsValidInvoiceID(invoiceID) {
		return errorJSON(e, http.StatusNotFound, codeNotFound)
	}

	inv, err := h.invoices.GetInvoice(e.Request.Context(), invoiceID)
	if err != nil {
		return h.mapError(e, invoiceID, err)
	}

	return e.JSON(http.StatusOK, models.NewInvoiceView(inv))
}

type payRequest struct {
	Amount json.RawMessage `json:"amount"`
}

// PayInvoice - Demo payment: marks the invoice paid and notifies cashiers
func (h *InvoiceHandler) PayInvoice(e *core.RequestEvent) error {
	invoiceID := e.Request.PathValue("id")
	if !services.IsValidInvoiceID(invoiceID) {
		return errorJSON(e, http.StatusNotFound, codeNotFound)
	}

	var req payRequest
	if err := json.NewDecoder(e.Request.Body).Decode(&req); err != nil {
		// an unreadable body carries no amount; the service decides
		// between ALREADY_PAID and INVALID_AMOUNT
		h.logger.Debug("pay request body not decoded", "invoiceId", invoiceID, "error", err)
	}

	res, err := h.payments.Pay(e.Request.Context(), invoiceID, parseAmount(req.Amount))
	if err != nil {
		return h.mapError(e, invoiceID, err)
	}

	if res.AlreadyPaid {
		return e.JSON(http.StatusOK, map[string]any{"ok": true, "alreadyPaid": true})
	}

	return e.JSON(http.StatusOK, map[string]any{
		"ok":        true,
		"invoiceId": res.InvoiceID,
		"amount":    res.Amount.InexactFloat64(),
	})
}

func (h *InvoiceHandler) mapError(e *core.RequestEvent, invoiceID string, err error) error {
	switch {
	case errors.Is(err, status.ErrInvoiceNotFound):
		return errorJSON(e, http.StatusNotFound, codeNotFound)
	case errors.Is(err, status.ErrInvalidAmount):
		return errorJSON(e, http.StatusBadRequest, codeInvalidAmount)
	default:
		h.logger.Error("invoice request failed", "invoiceId", invoiceID, "error", err)
		return errorJSON(e, http.StatusInternalServerError, codeInternal)
	}
}

// parseAmount accepts a JSON number or a decimal numeric string. Anything
// else, including a missing amount, yields zero, which the service rejects.
// Booleans, hex strings like "0x10" and single-element arrays are refused
// even though a browser's Number() would coerce them.
func parseAmount(raw json.RawMessage) decimal.Decimal {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return decimal.Zero
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return decimal.Zero
		}
		s = strings.TrimSpace(str)
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

func errorJSON(e *core.RequestEvent, code int, errCode string) error {
	return e.JSON(code, map[string]any{"ok": false, "error": errCode})
}
