package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ftwrp/companion/internal/applications"
	"github.com/ftwrp/companion/internal/audit"
	"github.com/ftwrp/companion/internal/auth"
	"github.com/ftwrp/companion/internal/gameserver"
	"github.com/ftwrp/companion/internal/leaderboard"
	"github.com/ftwrp/companion/internal/news"
	"github.com/ftwrp/companion/internal/observability"
	"github.com/ftwrp/companion/internal/players"
	"github.com/ftwrp/companion/internal/rbac"
	"github.com/ftwrp/companion/internal/reports"
	"github.com/ftwrp/companion/internal/shared"
	"github.com/ftwrp/companion/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler         *auth.Handler
	RBACHandler         *rbac.Handler
	ReportsHandler      *reports.Handler
	ApplicationsHandler *applications.Handler
	PlayersHandler      *players.Handler
	NewsHandler         *news.Handler
	AuditHandler        *audit.Handler
	LeaderboardHandler  *leaderboard.Handler
	GameServerHandler   *gameserver.Handler
	JobHandler          *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with companion defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	// Public surface: no sign-in required.
	if params.NewsHandler != nil {
		r.Route("/news", params.NewsHandler.MountPublicRoutes)
	}
	if params.LeaderboardHandler != nil {
		r.Route("/leaderboard", params.LeaderboardHandler.MountRoutes)
	}
	if params.GameServerHandler != nil {
		r.Route("/server", params.GameServerHandler.MountPublicRoutes)
	}

	// Player surface: any authenticated account.
	if params.ReportsHandler != nil {
		r.Route("/reports", params.ReportsHandler.MountPlayerRoutes)
	}
	if params.ApplicationsHandler != nil {
		r.Route("/applications", params.ApplicationsHandler.MountApplicantRoutes)
	}

	// Staff surface: permission gated per module.
	r.Route("/staff", func(r chi.Router) {
		if params.ReportsHandler != nil {
			r.Route("/reports", params.ReportsHandler.MountStaffRoutes)
		}
		if params.ApplicationsHandler != nil {
			r.Route("/applications", params.ApplicationsHandler.MountReviewRoutes)
		}
		if params.PlayersHandler != nil {
			r.Route("/players", params.PlayersHandler.MountRoutes)
		}
		if params.NewsHandler != nil {
			r.Route("/news", params.NewsHandler.MountEditorRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/logs", params.AuditHandler.MountRoutes)
		}
		if params.GameServerHandler != nil {
			r.Route("/server", params.GameServerHandler.MountAdminRoutes)
		}
	})

	if params.RBACHandler != nil {
		r.Route("/admin", params.RBACHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
