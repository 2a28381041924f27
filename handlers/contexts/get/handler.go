package get

import (
	"log/slog"
	"net/http"

	"github.com/a-h/formfill/auth"
	"github.com/a-h/formfill/db"
	"github.com/a-h/formfill/models"
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

	resp := models.ContextGetResponse{
		Plan:    make([]models.PlanField, len(session.Plan)),
		Answers: session.Answers,
		Missing: session.Missing(),
	}
	for i, f := range session.Plan {
		resp.Plan[i] = models.PlanField{
			Label: f.Label,
			X:     f.X,
			Y:     f.Y,
		}
	}
	respond.WithJSON(w, resp, http.StatusOK)
}
