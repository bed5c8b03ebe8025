package app

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/maydaypets/platform/internal/alert"
	"github.com/maydaypets/platform/internal/clock"
	"github.com/maydaypets/platform/internal/gate"
	"github.com/maydaypets/platform/internal/guard"
	"github.com/maydaypets/platform/internal/handler"
	"github.com/maydaypets/platform/internal/projection"
	"github.com/maydaypets/platform/internal/repository"
)

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	Clock  clock.Clock

	EvaluateRateLimit  int
	EvaluateRateWindow time.Duration
	SyncTTL            time.Duration
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	logger := deps.Logger
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}

	eventLog := repository.NewPgEventLog(deps.Pool)

	svc := alert.NewService(
		eventLog,
		projection.NewInMemoryStore(clk),
		guard.NewRateLimiter(deps.EvaluateRateLimit, deps.EvaluateRateWindow, clk),
		gate.NewEvaluator(gate.DefaultTierPolicy(), clk),
		clk,
		logger,
	)
	queue := alert.NewSyncQueue(svc, guard.NewIdempotencyStore(deps.SyncTTL, clk), logger)

	alertHandler := handler.NewAlertHandler(svc)
	syncHandler := handler.NewSyncHandler(queue)

	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORS)
	r.Use(handler.JSONContentType)

	r.Get("/health", handler.HealthHandler(deps.Pool))

	r.Route("/subjects/{subjectID}", func(r chi.Router) {
		r.Post("/events", alertHandler.AppendEvent)
		r.Get("/events", alertHandler.ListEvents)
		r.Get("/projection", alertHandler.GetProjection)
		r.Post("/evaluate", alertHandler.Evaluate)
		r.Post("/reports/assess", alertHandler.AssessReport)
	})

	r.Post("/sync", syncHandler.ProcessBatch)

	return r
}
