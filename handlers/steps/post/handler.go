package post

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/formfill/auth"
	"github.com/a-h/formfill/db"
	"github.com/a-h/formfill/models"
	"github.com/a-h/formfill/pdf"
	"github.com/a-h/respond"
)

func New(log *slog.Logger, queries *db.Queries) Handler {
	return Handler{
		log:     log,
		queries: queries,
	}
}

type Handler struct {
	log     *slog.Logger
	queries *db.Queries
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	partition, ok := auth.GetPartition(r)
	if !ok {
		http.Error(w, "authentication not provided", http.StatusUnauthorized)
		return
	}

	session, ok, err := h.queries.SessionGet(r.Context(), db.SessionID{
		Partition: partition,
		ID:        r.PathValue("id"),
	})
	if err != nil {
		h.log.Error("session get failed", slog.Any("error", err))
		respond.WithError(w, "session get failed", http.StatusInternalServerError)
		return
	}
	if !ok {
		respond.WithError(w, "context not found", http.StatusNotFound)
		return
	}

	missing := session.Missing()
	if len(missing) > 0 {
		// Partial content signals that more answers are needed before
		// the PDF can be produced.
		respond.WithJSON(w, models.StepNeedInfoResponse{
			Status:  models.StepStatusNeedInfo,
			Missing: missing,
			Message: fmt.Sprintf("Please supply values for: %s", strings.Join(missing, ", ")),
		}, http.StatusPartialContent)
		return
	}

	texts := make([]pdf.Text, len(session.Plan))
	for i, f := range session.Plan {
		texts[i] = pdf.Text{
			Value: session.Answers[f.Label],
			X:     f.X,
			Y:     f.Y,
		}
	}
	filled, err := pdf.Overlay(session.PDF, texts)
	if err != nil {
		h.log.Error("failed to fill PDF", slog.Any("error", err))
		respond.WithError(w, "failed to fill PDF", http.StatusInternalServerError)
		return
	}

	h.log.Info("filled PDF produced", slog.String("id", session.ID), slog.Int("bytes", len(filled)))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="filled_form.pdf"`)
	if _, err = w.Write(filled); err != nil {
		h.log.Error("failed to write response", slog.Any("error", err))
	}
}
