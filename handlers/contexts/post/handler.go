package post

import (
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/a-h/formfill/auth"
	"github.com/a-h/formfill/db"
	"github.com/a-h/formfill/models"
	"github.com/a-h/formfill/pdf"
	"github.com/a-h/formfill/plan"
	"github.com/a-h/respond"
	"github.com/google/uuid"
)

const maxUploadBytes = 32 << 20

// TestPartition is the partition used by integration tests. Uploads to
// it receive TestPlan instead of a vision model call.
const TestPartition = "test-partition-no-llm"

var TestPlan = []plan.Field{
	{Label: "Name", X: 120, Y: 640},
	{Label: "Email", X: 120, Y: 600},
	{Label: "Birthday", X: 120, Y: 560},
}

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

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("pdf")
	if err != nil {
		h.log.Error("failed to read upload", slog.Any("error", err))
		respond.WithError(w, "upload a PDF in the pdf form field", http.StatusBadRequest)
		return
	}
	defer file.Close()
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		respond.WithError(w, "upload a PDF", http.StatusBadRequest)
		return
	}
	pdfBytes, err := io.ReadAll(file)
	if err != nil {
		h.log.Error("failed to read upload body", slog.Any("error", err))
		respond.WithError(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	pageCount, err := pdf.Validate(pdfBytes)
	if err != nil {
		h.log.Error("invalid PDF", slog.Any("error", err))
		respond.WithError(w, "invalid PDF", http.StatusBadRequest)
		return
	}

	var fields []plan.Field
	if partition == TestPartition {
		// Test API keys get a fixed plan instead of a vision model call.
		fields = TestPlan
	} else {
		pageImage, err := pdf.PageImage(pdfBytes, 0)
		if err != nil {
			h.log.Error("failed to render first page", slog.Any("error", err))
			respond.WithError(w, "failed to render first page", http.StatusInternalServerError)
			return
		}
		fields, err = h.extractor.Extract(r.Context(), pageImage)
		if err != nil {
			h.log.Error("vision model failed", slog.Any("error", err))
			respond.WithError(w, "vision model failed", http.StatusBadGateway)
			return
		}
	}

	now := time.Now().UTC()
	session := db.Session{
		SessionID: db.SessionID{
			Partition: partition,
			ID:        uuid.New().String(),
		},
		PDF:           pdfBytes,
		Plan:          toDBFields(fields),
		Answers:       map[string]string{},
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	if err = h.queries.SessionPut(r.Context(), session); err != nil {
		h.log.Error("session put failed", slog.Any("error", err))
		respond.WithError(w, "session put failed", http.StatusInternalServerError)
		return
	}

	h.log.Info("context created", slog.String("id", session.ID), slog.Int("pages", pageCount), slog.Int("fields", len(fields)))
	respond.WithJSON(w, models.ContextPostResponse{
		ID:      session.ID,
		Missing: session.Missing(),
	}, http.StatusOK)
}

func toDBFields(fields []plan.Field) []db.Field {
	out := make([]db.Field, len(fields))
	for i, f := range fields {
		out[i] = db.Field{
			Label: f.Label,
			X:     f.X,
			Y:     f.Y,
		}
	}
	return out
}
