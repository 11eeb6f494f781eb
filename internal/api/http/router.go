// Package http provides the HTTP delivery layer for the link shortener.
// It wires the router, validates input and formats responses; all link
// semantics live in the service layer.
package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/mstepanov/shortling/internal/config"
	"github.com/mstepanov/shortling/internal/models"
)

// LinkService defines the business operations the handlers depend on.
type LinkService interface {
	Shorten(ctx context.Context, destination, customKey string) (*models.Link, error)
	Resolve(ctx context.Context, id string) (*models.Link, error)
	Info(ctx context.Context, id string) (*models.Link, error)
	CheckDestination(ctx context.Context, destination string) (*models.Link, error)
	Remove(ctx context.Context, id string) (*models.Link, error)
	List(ctx context.Context) ([]*models.Link, error)
}

func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter initializes a chi router with middleware, API routes, the public
// redirect entrypoint and the QR endpoints.
func NewRouter(logger *httplog.Logger, linkSvc LinkService, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"POST", "GET", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./docs/swagger.yml")
	})

	r.Route("/api/v1", func(r chi.Router) {
		validate := getValidate()

		r.Get("/ping", handlePing)

		r.Route("/links", func(r chi.Router) {
			r.Post("/", handleCreateLink(linkSvc, validate, cfg))
			r.Get("/", handleListLinks(linkSvc, cfg))
			r.Get("/check", handleCheckDestination(linkSvc, validate, cfg))
			r.Delete("/{id}", handleDeleteLink(linkSvc))
		})
	})

	r.Get("/qr/{id}/png", handleQRCode(linkSvc, cfg))
	r.Get("/download/qr/{id}/{format}", handleDownloadQR(linkSvc, cfg))

	// Public redirect entrypoint; the literal routes above are more specific
	// and win regardless of registration order.
	r.Get("/{id}", handleRedirect(linkSvc))

	return r
}
