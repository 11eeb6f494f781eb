package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/mstepanov/shortling/internal/config"
	"github.com/mstepanov/shortling/internal/database"
	"github.com/mstepanov/shortling/internal/models"
	"github.com/mstepanov/shortling/internal/qr"
	"github.com/mstepanov/shortling/internal/service"
	"github.com/mstepanov/shortling/internal/shortid"
	"github.com/mstepanov/shortling/pkg/response"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

type createLinkRequest struct {
	URL string `json:"url" validate:"required,url"`
	Key string `json:"key,omitempty"`
}

type linkResponse struct {
	ID          string     `json:"id"`
	Destination string     `json:"destination"`
	ShortURL    string     `json:"short_url"`
	VisitCount  int64      `json:"visit_count"`
	CreatedAt   time.Time  `json:"created_at"`
	LastVisitAt *time.Time `json:"last_visit_at,omitempty"`
}

func toLinkResponse(cfg *config.Config, link *models.Link) linkResponse {
	return linkResponse{
		ID:          link.ID,
		Destination: link.Destination,
		ShortURL:    cfg.ShortURL(link.ID),
		VisitCount:  link.VisitCount,
		CreatedAt:   link.CreatedAt,
		LastVisitAt: link.LastVisitAt,
	}
}

func handleCreateLink(svc LinkService, validate *validator.Validate, cfg *config.Config) http.HandlerFunc {
	const op = "api.http.handleCreateLink"
	const successMsg = "The link has been created successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req createLinkRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.InvalidURLResponse(err))
			return
		}

		link, err := svc.Shorten(r.Context(), req.URL, req.Key)
		if err != nil {
			switch {
			case errors.Is(err, shortid.ErrInvalidKey):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.InvalidKeyFormatResponse)
			case errors.Is(err, database.ErrKeyExists):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.DuplicateKeyResponse)
			case errors.Is(err, service.ErrAllocationExhausted):
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.AllocationExhaustedResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(http.StatusCreated, successMsg, toLinkResponse(cfg, link)))
	}
}

func handleListLinks(svc LinkService, cfg *config.Config) http.HandlerFunc {
	const op = "api.http.handleListLinks"
	const successMsg = "Links retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		links, err := svc.List(r.Context())
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		data := make([]linkResponse, 0, len(links))
		for _, link := range links {
			data = append(data, toLinkResponse(cfg, link))
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(http.StatusOK, successMsg, data))
	}
}

type checkResponse struct {
	Exists bool          `json:"exists"`
	Link   *linkResponse `json:"link,omitempty"`
}

func handleCheckDestination(svc LinkService, validate *validator.Validate, cfg *config.Config) http.HandlerFunc {
	const op = "api.http.handleCheckDestination"
	const successMsg = "Destination check completed."

	return func(w http.ResponseWriter, r *http.Request) {
		destination := r.URL.Query().Get("url")

		if err := validate.Var(destination, "required,url"); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.InvalidURLResponse(err))
			return
		}

		link, err := svc.CheckDestination(r.Context(), destination)
		if err != nil {
			// Absence is a query result here, not an error.
			if errors.Is(err, database.ErrLinkNotFound) {
				render.Status(r, http.StatusOK)
				render.JSON(w, r, response.SuccessResponse(http.StatusOK, successMsg, checkResponse{Exists: false}))
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		data := toLinkResponse(cfg, link)

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(http.StatusOK, successMsg, checkResponse{Exists: true, Link: &data}))
	}
}

func handleDeleteLink(svc LinkService) http.HandlerFunc {
	const op = "api.http.handleDeleteLink"
	const successMsg = "The link was successfully deleted."

	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		link, err := svc.Remove(r.Context(), id)
		if err != nil {
			if errors.Is(err, database.ErrLinkNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(http.StatusOK, successMsg, map[string]string{
			"id":          link.ID,
			"destination": link.Destination,
		}))
	}
}

// handleRedirect serves browsers directly, so misses degrade to a plain
// not-found rather than the JSON envelope.
func handleRedirect(svc LinkService) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		link, err := svc.Resolve(r.Context(), id)
		if err != nil {
			if errors.Is(err, database.ErrLinkNotFound) {
				http.NotFound(w, r)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		// 302 keeps browsers re-resolving, so visit counting stays accurate.
		http.Redirect(w, r, link.Destination, http.StatusFound)
	}
}

func handleQRCode(svc LinkService, cfg *config.Config) http.HandlerFunc {
	const op = "api.http.handleQRCode"

	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		link, err := svc.Info(r.Context(), id)
		if err != nil {
			if errors.Is(err, database.ErrLinkNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		img, err := qr.PNG(cfg.ShortURL(link.ID), qr.Options{Size: cfg.QR.Size, Level: cfg.QR.Level})
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		w.Write(img)
	}
}

func handleDownloadQR(svc LinkService, cfg *config.Config) http.HandlerFunc {
	const op = "api.http.handleDownloadQR"

	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		format := chi.URLParam(r, "format")

		if format != qr.FormatPNG && format != qr.FormatSVG {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		link, err := svc.Info(r.Context(), id)
		if err != nil {
			if errors.Is(err, database.ErrLinkNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		opts := qr.Options{Size: cfg.QR.Size, Level: cfg.QR.Level}

		var img []byte
		var contentType string

		switch format {
		case qr.FormatPNG:
			img, err = qr.PNG(cfg.ShortURL(link.ID), opts)
			contentType = "image/png"
		case qr.FormatSVG:
			img, err = qr.SVG(cfg.ShortURL(link.ID), opts)
			contentType = "image/svg+xml"
		}

		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", link.ID+"."+format))
		w.WriteHeader(http.StatusOK)
		w.Write(img)
	}
}
