package client_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-h/formfill/client"
	"github.com/a-h/formfill/models"
	"github.com/a-h/jsonapi"
	"github.com/google/go-cmp/cmp"
)

func TestContextPost(t *testing.T) {
	t.Run("the PDF is uploaded as the pdf form field", func(t *testing.T) {
		var uploadedField string
		var uploadedBytes []byte
		s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/contexts" {
				t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			}
			file, header, err := r.FormFile("pdf")
			if err != nil {
				t.Fatalf("failed to read form file: %v", err)
			}
			defer file.Close()
			uploadedField = header.Filename
			uploadedBytes, _ = io.ReadAll(file)
			json.NewEncoder(w).Encode(models.ContextPostResponse{ID: "abc123", Missing: []string{"Name"}})
		}))
		defer s.Close()

		c := client.New(s.URL, "test-api-key")
		resp, err := c.ContextPost(context.Background(), "form.pdf", bytes.NewReader([]byte("%PDF-1.4 test")))
		if err != nil {
			t.Fatalf("failed to post context: %v", err)
		}
		if resp.ID != "abc123" {
			t.Errorf("expected id abc123, got %q", resp.ID)
		}
		if uploadedField != "form.pdf" {
			t.Errorf("expected filename form.pdf, got %q", uploadedField)
		}
		if string(uploadedBytes) != "%PDF-1.4 test" {
			t.Errorf("unexpected upload content %q", uploadedBytes)
		}
	})
	t.Run("a response without an id is an error", func(t *testing.T) {
		s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"missing": []string{"Name"}})
		}))
		defer s.Close()

		c := client.New(s.URL, "test-api-key")
		_, err := c.ContextPost(context.Background(), "form.pdf", bytes.NewReader([]byte("%PDF-1.4 test")))
		if err == nil {
			t.Fatal("expected error, got nil")
		}
	})
	t.Run("non-2xx responses are errors", func(t *testing.T) {
		s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		}))
		defer s.Close()

		c := client.New(s.URL, "test-api-key")
		_, err := c.ContextPost(context.Background(), "form.pdf", bytes.NewReader([]byte("%PDF-1.4 test")))
		var statusErr jsonapi.InvalidStatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("expected InvalidStatusError, got %v", err)
		}
		if statusErr.Status != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", statusErr.Status)
		}
	})
}

func TestMessagesPost(t *testing.T) {
	t.Run("the context id is used verbatim in the URL", func(t *testing.T) {
		var requestedPath string
		var received models.MessagesPostRequest
		s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestedPath = r.URL.Path
			json.NewDecoder(r.Body).Decode(&received)
			json.NewEncoder(w).Encode(models.MessagesPostResponse{Accepted: []string{"Name"}, Missing: []string{}})
		}))
		defer s.Close()

		c := client.New(s.URL, "test-api-key")
		req := models.MessagesPostRequest{
			Answers: map[string]string{"Name": "Aidan"},
		}
		resp, err := c.MessagesPost(context.Background(), "abc123", req)
		if err != nil {
			t.Fatalf("failed to post messages: %v", err)
		}
		if requestedPath != "/contexts/abc123/messages" {
			t.Errorf("expected path /contexts/abc123/messages, got %q", requestedPath)
		}
		if diff := cmp.Diff(req.Answers, received.Answers); diff != "" {
			t.Error(diff)
		}
		if diff := cmp.Diff([]string{"Name"}, resp.Accepted); diff != "" {
			t.Error(diff)
		}
	})
}

func TestStepPost(t *testing.T) {
	t.Run("the response bytes are copied without transformation", func(t *testing.T) {
		// Deliberately not valid UTF-8, to catch accidental string conversion.
		pdfBytes := []byte{'%', 'P', 'D', 'F', '-', 0x00, 0xff, 0xfe, 0x89, '\n'}
		var requestedPath string
		s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestedPath = r.URL.Path
			w.Header().Set("Content-Type", "application/pdf")
			w.Write(pdfBytes)
		}))
		defer s.Close()

		c := client.New(s.URL, "test-api-key")
		buf := new(bytes.Buffer)
		if err := c.StepPost(context.Background(), "abc123", buf); err != nil {
			t.Fatalf("failed to post step: %v", err)
		}
		if requestedPath != "/contexts/abc123/steps" {
			t.Errorf("expected path /contexts/abc123/steps, got %q", requestedPath)
		}
		if !bytes.Equal(pdfBytes, buf.Bytes()) {
			t.Errorf("expected %v, got %v", pdfBytes, buf.Bytes())
		}
	})
	t.Run("a 206 response is a NeedInfoError", func(t *testing.T) {
		s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusPartialContent)
			json.NewEncoder(w).Encode(models.StepNeedInfoResponse{
				Status:  models.StepStatusNeedInfo,
				Missing: []string{"Email", "Birthday"},
				Message: "Please supply values for: Email, Birthday",
			})
		}))
		defer s.Close()

		c := client.New(s.URL, "test-api-key")
		buf := new(bytes.Buffer)
		err := c.StepPost(context.Background(), "abc123", buf)
		var needInfo client.NeedInfoError
		if !errors.As(err, &needInfo) {
			t.Fatalf("expected NeedInfoError, got %v", err)
		}
		if diff := cmp.Diff([]string{"Email", "Birthday"}, needInfo.Missing); diff != "" {
			t.Error(diff)
		}
		if buf.Len() != 0 {
			t.Errorf("expected no output to be written, got %d bytes", buf.Len())
		}
	})
	t.Run("other non-2xx responses are errors", func(t *testing.T) {
		s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "context not found", http.StatusNotFound)
		}))
		defer s.Close()

		c := client.New(s.URL, "test-api-key")
		err := c.StepPost(context.Background(), "missing", io.Discard)
		var statusErr jsonapi.InvalidStatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("expected InvalidStatusError, got %v", err)
		}
		if statusErr.Status != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", statusErr.Status)
		}
	})
}
