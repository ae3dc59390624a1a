package main

import (
	"net/http"
	"os"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"servicequote/collections"
	"servicequote/config"
	"servicequote/handlers"
	"servicequote/logging"
	"servicequote/services"
	"servicequote/templates"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Fatal(err, "config: invalid settings")
	}
	logging.SetDefault(logging.New(&logging.Config{
		Level: logging.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	}))
	log := logging.Default()

	app := pocketbase.New()
	deps := newDeps(app, cfg)

	app.RootCmd.AddCommand(newRenderQuoteCmd(cfg))

	// Create collections and seed data on startup
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		collections.Setup(app)
		if err := collections.Seed(app); err != nil {
			log.Warn("startup: seed data failed", "error", err.Error())
		}
		if err := collections.MigrateBrandColors(app); err != nil {
			log.Warn("startup: brand colour migration failed", "error", err.Error())
		}
		return se.Next()
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		se.Router.GET("/static/{path...}", apis.Static(os.DirFS("./static"), false))

		se.Router.BindFunc(handlers.SessionMiddleware(deps.Auth))

		// ── Public calculator API ────────────────────────────────
		se.Router.GET("/api/businesses/{businessId}/catalog", handlers.HandleCatalog(deps))
		se.Router.POST("/api/businesses/{businessId}/quotes/preview", handlers.HandlePreviewTotals(deps))
		se.Router.POST("/api/businesses/{businessId}/quotes", handlers.HandleCreateQuote(deps))

		// ── Quote documents ──────────────────────────────────────
		se.Router.GET("/quotes/{id}/pdf", handlers.HandleQuotePDF(deps))
		se.Router.GET("/quotes/{id}/preview", handlers.HandleQuotePreview(deps))
		se.Router.POST("/quotes/{id}/paid", handlers.HandleMarkPaid(deps)).BindFunc(handlers.RequireSession)
		se.Router.POST("/quotes/{id}/email", handlers.HandleEmailQuote(deps)).BindFunc(handlers.RequireSession)

		// ── Dashboard ────────────────────────────────────────────
		se.Router.GET("/dashboard", handlers.HandleDashboard(deps)).BindFunc(handlers.RequireSession)
		se.Router.GET("/dashboard/quotes.xlsx", handlers.HandleQuotesExport(deps)).BindFunc(handlers.RequireSession)
		se.Router.POST("/dashboard/services/import", handlers.HandleCatalogImport(deps)).BindFunc(handlers.RequireSession)
		se.Router.GET("/dashboard/services/template", handlers.HandleCatalogTemplate()).BindFunc(handlers.RequireSession)

		// ── Session ──────────────────────────────────────────────
		se.Router.POST("/session/demo", handlers.HandleDemoLogin(deps))
		se.Router.POST("/session/signin", handlers.HandleSignIn(deps))
		se.Router.POST("/session/signup", handlers.HandleSignUp(deps))
		se.Router.POST("/session/signout", handlers.HandleSignOut())

		se.Router.GET("/", func(e *core.RequestEvent) error {
			if handlers.GetSession(e.Request).SignedIn() {
				return e.Redirect(http.StatusFound, "/dashboard")
			}
			e.Response.Header().Set("Content-Type", "text/html; charset=utf-8")
			return templates.Page("Service Quotes", "", templates.Home()).Render(e.Request.Context(), e.Response)
		})

		return se.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal(err, "app: stopped")
	}
}

// newDeps wires the configured catalog, numbering strategy and mail settings.
func newDeps(app *pocketbase.PocketBase, cfg *config.Config) handlers.Deps {
	var catalog services.Catalog = services.RecordCatalog{App: app}
	if cfg.UseDemoCatalog() {
		catalog = services.DemoCatalog{}
	}
	return handlers.Deps{
		App:          app,
		Catalog:      catalog,
		Numberer:     services.NewQuoteNumberer(cfg.Numbering, app),
		Auth:         services.Authenticator{App: app},
		Mail:         cfg.Mail(),
		ValidityDays: cfg.ValidityDays,
	}
}
