package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"pos-relay/internal/status"
	"pos-relay/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestInvoiceService() (*InvoiceService, *time.Time) {
	now := time.UnixMilli(1700000000000)
	service := NewInvoiceService(nil, discardLogger())
	service.now = func() time.Time { return now }
	return service, &now
}

func TestInvoiceService_CreateInvoice(t *testing.T) {
	service, now := setupTestInvoiceService()

	inv, err := service.CreateInvoice(context.Background(), "scan")
	require.NoError(t, err)

	assert.True(t, IsValidInvoiceID(inv.ID), "unexpected id %q", inv.ID)
	assert.Equal(t, models.InvoiceStatusOpen, inv.Status)
	assert.True(t, inv.Amount.IsZero())
	assert.Nil(t, inv.PaidAt)
	assert.Equal(t, *now, inv.CreatedAt)
}

func TestInvoiceService_CreateInvoice_RetriesOnCollision(t *testing.T) {
	service, _ := setupTestInvoiceService()
	codes := []string{"AAAA0000", "AAAA0000", "BBBB1111"}
	service.newCode = func() (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}

	first, err := service.CreateInvoice(context.Background(), "api")
	require.NoError(t, err)
	second, err := service.CreateInvoice(context.Background(), "api")
	require.NoError(t, err)

	assert.Equal(t, "INV-AAAA0000", first.ID)
	assert.Equal(t, "INV-BBBB1111", second.ID)
}

func TestInvoiceService_CreateInvoice_GivesUpAfterRepeatedCollisions(t *testing.T) {
	service, _ := setupTestInvoiceService()
	service.newCode = func() (string, error) { return "AAAA0000", nil }

	_, err := service.CreateInvoice(context.Background(), "api")
	require.NoError(t, err)

	_, err = service.CreateInvoice(context.Background(), "api")
	assert.ErrorIs(t, err, status.ErrIDExhausted)
}

func TestInvoiceService_CreateInvoice_UniqueIDs(t *testing.T) {
	service, _ := setupTestInvoiceService()
	ctx := context.Background()

	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		inv, err := service.CreateInvoice(ctx, "scan")
		require.NoError(t, err)
		seen[inv.ID] = struct{}{}
	}

	assert.Len(t, seen, 500)
	assert.Equal(t, InvoiceStats{Open: 500}, service.Stats())
}

func TestInvoiceService_GetInvoice_NotFound(t *testing.T) {
	service, _ := setupTestInvoiceService()

	_, err := service.GetInvoice(context.Background(), "INV-NOPE")

	assert.ErrorIs(t, err, status.ErrInvoiceNotFound)
}

func TestInvoiceService_CanceledContext(t *testing.T) {
	service, _ := setupTestInvoiceService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.CreateInvoice(ctx, "scan")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, InvoiceStats{}, service.Stats())
}

func TestInvoiceService_PayLifecycle(t *testing.T) {
	service, now := setupTestInvoiceService()
	ctx := context.Background()

	inv, err := service.CreateInvoice(ctx, "scan")
	require.NoError(t, err)

	got, err := service.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusOpen, got.Status)
	assert.Nil(t, got.PaidAt)

	*now = now.Add(3 * time.Second)
	res, err := service.PayInvoice(ctx, inv.ID, decimal.NewFromInt(15000))
	require.NoError(t, err)
	assert.False(t, res.AlreadyPaid)
	assert.Equal(t, inv.ID, res.InvoiceID)
	assert.True(t, decimal.NewFromInt(15000).Equal(res.Amount))
	assert.Equal(t, *now, res.PaidAt)

	got, err = service.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, got.Status)
	assert.True(t, decimal.NewFromInt(15000).Equal(got.Amount))
	require.NotNil(t, got.PaidAt)
	assert.Equal(t, *now, *got.PaidAt)
	assert.Equal(t, inv.CreatedAt, got.CreatedAt)
}

func TestInvoiceService_PayTwice_AlreadyPaid(t *testing.T) {
	service, now := setupTestInvoiceService()
	ctx := context.Background()

	inv, err := service.CreateInvoice(ctx, "scan")
	require.NoError(t, err)

	first, err := service.PayInvoice(ctx, inv.ID, decimal.NewFromInt(15000))
	require.NoError(t, err)

	*now = now.Add(time.Minute)
	amounts := []decimal.Decimal{decimal.NewFromInt(99), decimal.Zero, decimal.NewFromInt(-5)}
	for _, amount := range amounts {
		res, err := service.PayInvoice(ctx, inv.ID, amount)
		require.NoError(t, err)
		assert.True(t, res.AlreadyPaid)
	}

	got, err := service.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, first.Amount.Equal(got.Amount))
	assert.Equal(t, first.PaidAt, *got.PaidAt)
}

func TestInvoiceService_PayInvalidAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount decimal.Decimal
	}{
		{"Zero", decimal.Zero},
		{"Negative", decimal.NewFromInt(-100)},
		{"Tiny negative", decimal.RequireFromString("-0.01")},
		{"Overflows float64", decimal.RequireFromString("1e400")},
		{"Negative overflow", decimal.RequireFromString("-1e400")},
		{"Underflows to zero", decimal.RequireFromString("1e-400")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := setupTestInvoiceService()
			ctx := context.Background()
			inv, err := service.CreateInvoice(ctx, "scan")
			require.NoError(t, err)

			_, err = service.PayInvoice(ctx, inv.ID, tt.amount)
			assert.ErrorIs(t, err, status.ErrInvalidAmount)

			got, err := service.GetInvoice(ctx, inv.ID)
			require.NoError(t, err)
			assert.Equal(t, models.InvoiceStatusOpen, got.Status)
			assert.Nil(t, got.PaidAt)
		})
	}
}

func TestInvoiceService_PayUnknown(t *testing.T) {
	service, _ := setupTestInvoiceService()

	_, err := service.PayInvoice(context.Background(), "INV-NOPE", decimal.NewFromInt(10))

	assert.ErrorIs(t, err, status.ErrInvoiceNotFound)
	assert.Equal(t, InvoiceStats{}, service.Stats())
}

func TestInvoiceService_ConcurrentPay_ExactlyOneWins(t *testing.T) {
	service, _ := setupTestInvoiceService()
	ctx := context.Background()

	inv, err := service.CreateInvoice(ctx, "scan")
	require.NoError(t, err)

	const payers = 50
	results := make([]models.PayResult, payers)
	errs := make([]error, payers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < payers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = service.PayInvoice(ctx, inv.ID, decimal.NewFromInt(int64(1000+i)))
		}(i)
	}
	close(start)
	wg.Wait()

	winners := 0
	var winningAmount decimal.Decimal
	for i := 0; i < payers; i++ {
		require.NoError(t, errs[i])
		if !results[i].AlreadyPaid {
			winners++
			winningAmount = results[i].Amount
		}
	}

	assert.Equal(t, 1, winners)
	got, err := service.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, winningAmount.Equal(got.Amount), "stored %s, winner paid %s", got.Amount, winningAmount)
}

func TestInvoiceService_GetInvoice_ReturnsCopy(t *testing.T) {
	service, _ := setupTestInvoiceService()
	ctx := context.Background()

	inv, err := service.CreateInvoice(ctx, "scan")
	require.NoError(t, err)
	_, err = service.PayInvoice(ctx, inv.ID, decimal.NewFromInt(10))
	require.NoError(t, err)

	got, err := service.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	*got.PaidAt = time.Time{}
	got.Status = models.InvoiceStatusOpen

	again, err := service.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, again.Status)
	assert.False(t, again.PaidAt.IsZero())
}

func TestIsValidInvoiceID(t *testing.T) {
	tests := []struct {
		id       string
		expected bool
	}{
		{"INV-ABCD1234", true},
		{"INV-00000000", true},
		{"INV-NOPE", false},
		{"INV-abcd1234", false},
		{"inv-ABCD1234", false},
		{"INV-ABCD12345", false},
		{"", false},
		{"INV-ABCD-234", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.id), func(t *testing.T) {
			assert.Equal(t, tt.expected, IsValidInvoiceID(tt.id))
		})
	}
}

func BenchmarkInvoiceService_CreateInvoice(b *testing.B) {
	service := NewInvoiceService(nil, discardLogger())
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = service.CreateInvoice(ctx, "bench")
	}
}
