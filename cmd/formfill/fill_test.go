package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a-h/formfill/client"
	"github.com/a-h/formfill/models"
	"github.com/google/go-cmp/cmp"
)

func TestRunFill(t *testing.T) {
	pdfBytes := []byte{'%', 'P', 'D', 'F', '-', '1', '.', '4', 0x00, 0xff, '\n'}
	answers := map[string]string{
		"Name":     "Aidan",
		"Email":    "aidan@example.com",
		"Birthday": "1990-01-01",
	}

	t.Run("the three calls happen in order with the returned id", func(t *testing.T) {
		var paths []string
		s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.Method+" "+r.URL.Path)
			switch r.URL.Path {
			case "/contexts":
				json.NewEncoder(w).Encode(models.ContextPostResponse{ID: "abc123", Missing: []string{"Name", "Email", "Birthday"}})
			case "/contexts/abc123/messages":
				var req models.MessagesPostRequest
				json.NewDecoder(r.Body).Decode(&req)
				if diff := cmp.Diff(answers, req.Answers); diff != "" {
					t.Error(diff)
				}
				json.NewEncoder(w).Encode(models.MessagesPostResponse{Accepted: []string{"Birthday", "Email", "Name"}, Missing: []string{}})
			case "/contexts/abc123/steps":
				w.Header().Set("Content-Type", "application/pdf")
				w.Write(pdfBytes)
			default:
				t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
				http.NotFound(w, r)
			}
		}))
		defer s.Close()

		dir := t.TempDir()
		pdfPath := filepath.Join(dir, "form.pdf")
		if err := os.WriteFile(pdfPath, []byte("%PDF-1.4 input"), 0o600); err != nil {
			t.Fatal(err)
		}
		outputPath := filepath.Join(dir, "filled_form.pdf")

		buf := new(bytes.Buffer)
		err := runFill(context.Background(), client.New(s.URL, "test-api-key"), newTranscript(buf), fillArgs{
			pdfPath:    pdfPath,
			answers:    answers,
			outputPath: outputPath,
		})
		if err != nil {
			t.Fatalf("failed to run fill: %v", err)
		}

		expectedPaths := []string{
			"POST /contexts",
			"POST /contexts/abc123/messages",
			"POST /contexts/abc123/steps",
		}
		if diff := cmp.Diff(expectedPaths, paths); diff != "" {
			t.Error(diff)
		}

		written, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read output: %v", err)
		}
		if !bytes.Equal(pdfBytes, written) {
			t.Errorf("expected %v, got %v", pdfBytes, written)
		}

		transcript := buf.String()
		order := []string{"POST /contexts", "abc123", "POST /contexts/abc123/messages", "POST /contexts/abc123/steps"}
		var lastIndex int
		for _, want := range order {
			i := strings.Index(transcript[lastIndex:], want)
			if i < 0 {
				t.Fatalf("expected transcript to contain %q after position %d:\n%s", want, lastIndex, transcript)
			}
			lastIndex += i
		}
	})

	t.Run("a failure stops the sequence", func(t *testing.T) {
		var stepCalled bool
		s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/contexts":
				json.NewEncoder(w).Encode(models.ContextPostResponse{ID: "abc123", Missing: []string{"Name"}})
			case "/contexts/abc123/messages":
				http.Error(w, "boom", http.StatusInternalServerError)
			default:
				stepCalled = true
				http.NotFound(w, r)
			}
		}))
		defer s.Close()

		dir := t.TempDir()
		pdfPath := filepath.Join(dir, "form.pdf")
		if err := os.WriteFile(pdfPath, []byte("%PDF-1.4 input"), 0o600); err != nil {
			t.Fatal(err)
		}
		outputPath := filepath.Join(dir, "filled_form.pdf")

		err := runFill(context.Background(), client.New(s.URL, "test-api-key"), newTranscript(new(bytes.Buffer)), fillArgs{
			pdfPath:    pdfPath,
			answers:    answers,
			outputPath: outputPath,
		})
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if stepCalled {
			t.Error("expected the step call to be skipped after a failure")
		}
		if _, err := os.Stat(outputPath); !os.IsNotExist(err) {
			t.Error("expected no output file to be written")
		}
	})
}
