package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"dubber/internal/config"
	"dubber/internal/dubbing"
	"dubber/internal/jobs"
	"dubber/internal/logging"
	"dubber/internal/voices"
)

// Submitter queues a dubbing request.
type Submitter interface {
	Submit(req dubbing.Request) (<-chan dubbing.Outcome, error)
}

// Validator rejects malformed requests before they are queued.
type Validator interface {
	Validate(req dubbing.Request) error
}

// Cloner registers a voice sample with the cloning provider.
type Cloner interface {
	Clone(ctx context.Context, samplePath, voiceID, description string) error
}

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	Config    *config.Config
	Pool      Submitter
	Validator Validator
	Ledger    *jobs.Ledger
	Profiles  *voices.Registry
	// Cloner is nil when voice cloning is not configured.
	Cloner Cloner
	Logger *slog.Logger
}

type handlers struct {
	cfg      *config.Config
	pool     Submitter
	check    Validator
	ledger   *jobs.Ledger
	profiles *voices.Registry
	cloner   Cloner
	validate *validator.Validate
	logger   *slog.Logger
}

// NewRouter builds the HTTP handler.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	h := &handlers{
		cfg:      deps.Config,
		pool:     deps.Pool,
		check:    deps.Validator,
		ledger:   deps.Ledger,
		profiles: deps.Profiles,
		cloner:   deps.Cloner,
		validate: validator.New(),
		logger:   logging.NewComponentLogger(logger, "api"),
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(corsOptions()))

	r.Get("/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(deps.Config.Paths.APIToken))
		r.Use(sessionMiddleware)

		r.Route("/dubbing", func(r chi.Router) {
			r.Post("/process", h.processDubbing)
			r.Get("/download", h.downloadDubbed)
			r.Get("/languages", h.languages)
			r.Get("/voices", h.voices)
			r.Get("/jobs", h.listJobs)
			r.Get("/jobs/{id}", h.job)
		})
		r.Route("/voice-clone", func(r chi.Router) {
			r.Post("/clone", h.cloneVoice)
			r.Get("/list", h.listClonedVoices)
			r.Post("/delete", h.deleteClonedVoice)
		})
		r.Get("/temp/{file}", h.serveOutput)
	})

	return r
}

func corsOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", sessionHeader},
		ExposedHeaders: []string{"Content-Disposition", "Content-Length"},
		MaxAge:         300,
	}
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"status":          "ok",
		"cloning_enabled": h.cloner != nil,
	})
}
