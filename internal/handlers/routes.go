package handlers

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"pos-relay/internal/services"
	"pos-relay/monitoring"
	"pos-relay/utils"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/redis/go-redis/v9"
)

type Dependencies struct {
	Invoices    *services.InvoiceService
	Payments    *services.PaymentService
	Broadcaster *services.EventBroadcaster

	// PublicFS serves the cashier and pay pages. Nil disables static routes.
	PublicFS    fs.FS
	CashierPage string
	PayPage     string

	StreamWriteTimeout time.Duration
	HeartbeatInterval  time.Duration

	// Redis is checked by /health when the Redis relay is enabled.
	Redis         *redis.Client
	EnableMetrics bool

	Logger *slog.Logger
}

func RegisterRoutes(r *router.Router[*core.RequestEvent], deps Dependencies) {
	invoiceHandler := NewInvoiceHandler(deps.Invoices, deps.Payments, deps.PayPage, deps.Logger)
	eventsHandler := NewEventsHandler(deps.Broadcaster, deps.StreamWriteTimeout, deps.HeartbeatInterval, deps.Logger)

	// Scan + live events
	r.GET("/scan", invoiceHandler.Scan)
	r.GET("/events", eventsHandler.Stream)

	// Invoice endpoints
	r.POST("/api/invoice/new", invoiceHandler.NewInvoice)
	r.GET("/api/invoice/{id}", invoiceHandler.GetInvoice)
	r.POST("/api/invoice/{id}/pay", invoiceHandler.PayInvoice)

	// Health check
	r.GET("/health", func(e *core.RequestEvent) error {
		stats := deps.Invoices.Stats()
		body := map[string]any{
			"status":      "healthy",
			"subscribers": deps.Broadcaster.Count(),
			"invoices":    stats,
		}
		if deps.Redis != nil {
			if err := utils.RedisHealthCheck(deps.Redis); err != nil {
				body["status"] = "unhealthy"
				body["error"] = err.Error()
				return e.JSON(http.StatusServiceUnavailable, body)
			}
		}
		return e.JSON(http.StatusOK, body)
	})

	if deps.EnableMetrics {
		r.GET("/metrics", apis.WrapStdHandler(monitoring.Handler()))
	}

	// Cashier page + static assets
	if deps.PublicFS != nil {
		r.GET("/{$}", func(e *core.RequestEvent) error {
			return e.FileFS(deps.PublicFS, deps.CashierPage)
		})
		r.GET("/{path...}", apis.Static(deps.PublicFS, false))
	}
}
