package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/sanathkumar-crypto/issue-tracker/internal/config"
	"github.com/sanathkumar-crypto/issue-tracker/internal/handlers"
	"github.com/sanathkumar-crypto/issue-tracker/internal/middleware"
	"github.com/sanathkumar-crypto/issue-tracker/internal/repository/csvstore"
	"github.com/sanathkumar-crypto/issue-tracker/internal/service"
)

func New(log zerolog.Logger, store *csvstore.Store, cfg config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Origin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(httprate.LimitByIP(200, time.Minute))

	// Repos + services
	issueRepo := csvstore.NewIssueRepo(store)
	userRepo := csvstore.NewUserRepo(store)
	settingsRepo := csvstore.NewSettingsRepo(store)

	authSvc := service.NewAuthService(userRepo, cfg)
	oauthSvc := service.NewOAuthService(cfg)
	statsSvc := service.NewStatsService(issueRepo)

	ah := handlers.NewAuthHTTP(authSvc, oauthSvc, userRepo, cfg, log)
	ih := handlers.NewIssueHTTP(issueRepo, userRepo, settingsRepo, log)
	fh := handlers.NewAttachmentHTTP(issueRepo, store, log)
	dh := handlers.NewDashboardHTTP(statsSvc, log)
	sh := handlers.NewSettingsHTTP(settingsRepo, userRepo, log)

	r.Use(middleware.WithAuth(cfg, authSvc))

	// Health
	r.Get("/healthz", handlers.Health())

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", ah.Login())
		r.Get("/google", ah.GoogleStart())
		r.Get("/google/callback", ah.GoogleCallback())
		r.Post("/logout", ah.Logout())
		r.Get("/me", ah.Me())
	})

	r.Route("/api/issues", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", ih.List())
		r.Post("/", ih.Create())
		r.Get("/export", ih.Export())
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", ih.Get())
			r.Patch("/", ih.Update())
			r.Post("/close", ih.Close())
			r.Post("/comments", ih.AddComment())
			r.Get("/history", ih.History())
			r.Post("/attachments", fh.Upload())
			r.With(middleware.RequireAdmin).Delete("/attachments/{attachmentID}", fh.Delete())
		})
	})

	// Attachment payloads are served outside /api so stored downloadURL values
	// stay valid links.
	r.With(middleware.RequireAuth).Get("/attachments/{issueID}/{fileName}", fh.Download())

	r.With(middleware.RequireAuth).Get("/api/dashboard/stats", dh.Stats())

	r.Route("/api/settings", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/hospitals", sh.ListHospitals())
		r.Get("/team", sh.ListTeam())
		r.Get("/categories", sh.ListCategories())

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Post("/hospitals", sh.AddHospital())
			r.Post("/hospitals/bulk", sh.BulkAddHospitals())
			r.Put("/hospitals/{name}", sh.UpdateHospital())
			r.Delete("/hospitals/{name}", sh.DeleteHospital())

			r.Post("/team", sh.AddTeamMember())
			r.Delete("/team/{uid}", sh.DeleteTeamMember())

			r.Post("/categories", sh.AddCategory())
			r.Put("/categories/{name}", sh.RenameCategory())
			r.Delete("/categories/{name}", sh.DeleteCategory())
			r.Post("/categories/{name}/subcategories", sh.AddSubcategory())
			r.Put("/categories/{name}/subcategories/{sub}", sh.RenameSubcategory())
			r.Delete("/categories/{name}/subcategories/{sub}", sh.DeleteSubcategory())

			r.Get("/users", sh.ListUsers())
			r.Put("/users/role", sh.SetUserRole())
		})
	})

	r.Route("/api/profile", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", sh.GetProfile())
		r.Put("/", sh.UpdateProfile())
	})

	return r
}
