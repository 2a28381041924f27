package post

import (
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/a-h/formfill/auth"
	"github.com/a-h/formfill/db"
	"github.com/a-h/formfill/models"
	"github.com/a-h/formfill/plan"
	"github.com/a-h/respond"
)

func New(log *slog.Logger, extractor plan.Extractor, queries *db.Queries) Handler {
	return Handler{
		log:       log,
		extractor: extractor,
		queries:   queries,
	}
}

type Handler struct {
	log       *slog.Logger
	extractor plan.Extractor
	queries   *db.Queries
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	partition, ok := auth.GetPartition(r)
	if !ok {
		http.Error(w, "authentication not provided", http.StatusUnauthorized)
		return
	}

	var req models.MessagesPostRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.log.Error("failed to decode body", slog.Any("error", err))
		respond.WithError(w, "failed to decode body", http.StatusBadRequest)
		return
	}
	if len(req.Answers) == 0 && strings.TrimSpace(req.Text) == "" {
		respond.WithError(w, "provide answers or text", http.StatusBadRequest)
		return
	}

	id := db.SessionID{
		Partition: partition,
		ID:        r.PathValue("id"),
	}
	session, ok, err := h.queries.SessionGet(r.Context(), id)
	if err != nil {
		h.log.Error("session get failed", slog.Any("error", err))
		respond.WithError(w, "session get failed", http.StatusInternalServerError)
		return
	}
	if !ok {
		respond.WithError(w, "context not found", http.StatusNotFound)
		return
	}

	answers := req.Answers
	if len(answers) == 0 {
		answers, err = h.extractor.MapAnswers(r.Context(), req.Text, session.Missing())
		if err != nil {
			h.log.Error("failed to map answers", slog.Any("error", err))
			respond.WithError(w, "failed to map answers", http.StatusBadGateway)
			return
		}
	}

	merged, ok, err := h.queries.SessionAnswersMerge(r.Context(), db.SessionAnswersMergeArgs{
		SessionID:     id,
		Answers:       answers,
		LastUpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		h.log.Error("failed to merge answers", slog.Any("error", err))
		respond.WithError(w, "failed to merge answers", http.StatusInternalServerError)
		return
	}
	if !ok {
		respond.WithError(w, "context not found", http.StatusNotFound)
		return
	}

	accepted := slices.Sorted(maps.Keys(answers))
	if accepted == nil {
		accepted = []string{}
	}
	h.log.Info("answers accepted", slog.String("id", id.ID), slog.Int("accepted", len(accepted)), slog.Int("missing", len(merged.Missing())))
	respond.WithJSON(w, models.MessagesPostResponse{
		Accepted: accepted,
		Missing:  merged.Missing(),
	}, http.StatusOK)
}
