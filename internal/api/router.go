package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/Harshitk-cp/mastery/internal/api/handlers"
	mw "github.com/Harshitk-cp/mastery/internal/api/middleware"
	"github.com/Harshitk-cp/mastery/internal/buildconfig"
	"github.com/Harshitk-cp/mastery/internal/config"
	"github.com/Harshitk-cp/mastery/internal/domain"
	"github.com/Harshitk-cp/mastery/internal/service"
	"github.com/Harshitk-cp/mastery/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router    *chi.Mux
	Sweep     *service.ReviewSweepService
	Tuner     *service.ParameterTuner
	metrics   *mw.Metrics
	startTime time.Time
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	masteryStore := store.NewMasteryStore(db)
	parameterStore := store.NewParameterStore(db)
	observationStore := store.NewObservationStore(db)
	skillMapStore := store.NewSkillMapStore(db)
	snapshotStore := store.NewSnapshotStore(db)

	model := domain.NewParameterModel(config.DefaultParameters())
	defaults := model.Defaults()
	logger.Info("parameter defaults loaded",
		zap.Float64("p_init", defaults.PInit),
		zap.Float64("p_transit", defaults.PTransit),
		zap.Float64("slip", defaults.Slip),
		zap.Float64("guess", defaults.Guess),
		zap.Bool("decays", defaults.Decays()))

	// Services
	masterySvc := service.NewMasteryService(masteryStore, parameterStore, observationStore, skillMapStore, model, logger)
	masterySvc.SetDueThreshold(config.DueThreshold())

	parameterSvc := service.NewParameterService(parameterStore, model, logger)
	skillMapSvc := service.NewSkillMapService(skillMapStore)

	sweepSvc := service.NewReviewSweepService(masterySvc, masteryStore, snapshotStore, logger)
	sweepSvc.SetThresholds(config.DueThreshold(), config.MasteredThreshold())
	sweepSvc.SetInterval(config.SweepInterval())

	tunerSvc := service.NewParameterTuner(observationStore, parameterStore, model, logger)
	tunerSvc.SetInterval(config.TunerInterval())

	// Handlers
	masteryHandler := handlers.NewMasteryHandler(masterySvc)
	parameterHandler := handlers.NewParameterHandler(parameterSvc)
	itemHandler := handlers.NewItemHandler(skillMapSvc)
	adminHandler := handlers.NewAdminHandler(sweepSvc, tunerSvc)

	r := chi.NewRouter()

	// Initialize app with metrics tracking
	app := &App{
		Router:    r,
		Sweep:     sweepSvc,
		Tuner:     tunerSvc,
		metrics:   mw.NewMetrics(),
		startTime: time.Now(),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)                                                 // Generate/extract request ID first
	r.Use(middleware.RealIP)                                            // Extract real IP
	r.Use(app.metrics.Middleware)                                       // Collect metrics
	r.Use(mw.Logging(logger))                                           // Log all requests
	r.Use(middleware.Recoverer)                                         // Recover from panics
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst())) // Rate limiting

	// Health (no auth)
	r.Get("/health", healthHandler(db))

	// Metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(config.APIKeys()))

		// Learners
		r.Route("/learners/{learnerID}", func(r chi.Router) {
			r.Post("/answers", masteryHandler.RecordAnswers)
			r.Get("/review", masteryHandler.GetReviewPlan)
			r.Get("/snapshots", adminHandler.ListSnapshots)
			r.Route("/tracks/{kind}/{subjectID}", func(r chi.Router) {
				r.Get("/", masteryHandler.GetTrack)
				r.Post("/rebuild", masteryHandler.RebuildTrack)
			})
		})

		// Skill parameters
		r.Get("/skills/{skillID}/parameters", parameterHandler.Get)
		r.Put("/skills/{skillID}/parameters", parameterHandler.Upsert)

		// Item to skill mapping
		r.Get("/items/{itemID}/skills", itemHandler.GetSkills)
		r.Put("/items/{itemID}/skills", itemHandler.SetSkills)

		// Background jobs
		r.Route("/admin", func(r chi.Router) {
			r.Post("/sweep", adminHandler.TriggerSweep)
			r.Post("/tune", adminHandler.TriggerTune)
		})
	})

	return app
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info := buildconfig.Get()
		resp := map[string]string{
			"status":  "ok",
			"version": info.Version,
			"commit":  info.Commit,
		}

		status := http.StatusOK
		if err := db.Ping(r.Context()); err != nil {
			resp["status"] = "error"
			resp["error"] = err.Error()
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"requests":       app.metrics.Snapshot(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"build": buildconfig.Get(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores satisfy interfaces at compile time.
var (
	_ domain.MasteryStore     = (*store.MasteryStore)(nil)
	_ domain.ParameterStore   = (*store.ParameterStore)(nil)
	_ domain.ObservationStore = (*store.ObservationStore)(nil)
	_ domain.SkillMapStore    = (*store.SkillMapStore)(nil)
	_ domain.SnapshotStore    = (*store.SnapshotStore)(nil)
)
