package drawings

import (
	"context"
	"drawboard-server/core"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

const MsgInvalidBody = "Invalid request body"

type (
	Repository interface {
		List(ctx context.Context) ([]*core.Drawing, error)
		Insert(ctx context.Context, imageData string) (string, error)
		Delete(ctx context.Context, id string) error
	}

	CreateRequest struct {
		ImageData string `json:"imageData"`
	}

	CreateResponse struct {
		ID      string `json:"id"`
		Success bool   `json:"success"`
	}

	SuccessResponse struct {
		Success bool `json:"success"`
	}

	ErrorResponse struct {
		Error string `json:"error"`
	}
)

// Routes mounts the collection endpoints on r.
func Routes(repo Repository, maxBodyBytes int64) func(r chi.Router) {
	return func(r chi.Router) {
		r.Get("/", HandleList(repo))
		r.Post("/", HandleCreate(repo, maxBodyBytes))
		r.Delete("/{id}", HandleDelete(repo))
	}
}

// HandleList returns every drawing, newest first.
func HandleList(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		drawings, err := repo.List(r.Context())
		if err != nil {
			renderError(w, r, err)
			return
		}
		render.JSON(w, r, drawings)
	}
}

// HandleCreate stores the posted image payload.
func HandleCreate(repo Repository, maxBodyBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRequest
		body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			logrus.WithError(err).Warn("Failed to decode request")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{Error: MsgInvalidBody})
			return
		}

		id, err := repo.Insert(r.Context(), req.ImageData)
		if err != nil {
			renderError(w, r, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, CreateResponse{ID: id, Success: true})
	}
}

// HandleDelete removes the drawing named by the {id} URL parameter.
func HandleDelete(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := repo.Delete(r.Context(), id); err != nil {
			renderError(w, r, err)
			return
		}
		render.JSON(w, r, SuccessResponse{Success: true})
	}
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	var rerr *core.Error
	if !errors.As(err, &rerr) {
		rerr = &core.Error{Kind: core.KindInternal, Message: http.StatusText(http.StatusInternalServerError), Err: err}
	}

	logrus.WithFields(logrus.Fields{
		"kind":   rerr.Kind.String(),
		"status": rerr.Status(),
		"path":   r.URL.Path,
	}).Debug("Request failed")

	render.Status(r, rerr.Status())
	render.JSON(w, r, ErrorResponse{Error: rerr.Message})
}
