package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/a-h/formfill/models"
	"github.com/a-h/jsonapi"
)

func New(baseURL, apiKey string) Client {
	return Client{
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type Client struct {
	baseURL string
	apiKey  string
}

// NeedInfoError is returned by StepPost when the server replies with
// partial content because answers are still missing.
type NeedInfoError struct {
	Missing []string
	Message string
}

func (e NeedInfoError) Error() string {
	return fmt.Sprintf("more answers needed for: %s", strings.Join(e.Missing, ", "))
}

// ContextPost uploads a PDF as the multipart form field "pdf" and
// creates a new context. It is an error for the response to lack an id.
func (c Client) ContextPost(ctx context.Context, filename string, pdf io.Reader) (resp models.ContextPostResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("contexts").String()
	if err != nil {
		return resp, err
	}

	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("pdf", filepath.Base(filename))
	if err != nil {
		return resp, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err = io.Copy(part, pdf); err != nil {
		return resp, fmt.Errorf("failed to copy PDF into request: %w", err)
	}
	if err = mw.Close(); err != nil {
		return resp, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return resp, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	res, err := jsonapi.Raw(httpReq, jsonapi.WithRequestHeader("Authorization", c.apiKey))
	if err != nil {
		return resp, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(res.Body)
		return resp, jsonapi.InvalidStatusError{
			Status: res.StatusCode,
			Body:   string(body),
		}
	}
	if err = json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return resp, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.ID == "" {
		return resp, fmt.Errorf("context response did not contain an id")
	}
	return resp, nil
}

func (c Client) MessagesPost(ctx context.Context, id string, req models.MessagesPostRequest) (resp models.MessagesPostResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("contexts", id, "messages").String()
	if err != nil {
		return resp, err
	}
	return jsonapi.Post[models.MessagesPostRequest, models.MessagesPostResponse](ctx, url, req, jsonapi.WithRequestHeader("Authorization", c.apiKey))
}

func (c Client) ContextGet(ctx context.Context, id string) (resp models.ContextGetResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("contexts", id).String()
	if err != nil {
		return resp, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return resp, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	res, err := jsonapi.Raw(httpReq, jsonapi.WithRequestHeader("Authorization", c.apiKey))
	if err != nil {
		return resp, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(res.Body)
		return resp, jsonapi.InvalidStatusError{
			Status: res.StatusCode,
			Body:   string(body),
		}
	}
	if err = json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return resp, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp, nil
}

// StepPost requests the filled PDF. On success the response body is
// copied into w without transformation. If the server replies 206, a
// NeedInfoError describes the answers that are still required.
func (c Client) StepPost(ctx context.Context, id string, w io.Writer) (err error) {
	url, err := jsonapi.URL(c.baseURL).Path("contexts", id, "steps").String()
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	res, err := jsonapi.Raw(httpReq, jsonapi.WithRequestHeader("Authorization", c.apiKey))
	if err != nil {
		return fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusPartialContent {
		var needInfo models.StepNeedInfoResponse
		if err = json.NewDecoder(res.Body).Decode(&needInfo); err != nil {
			return fmt.Errorf("failed to decode need_info response: %w", err)
		}
		return NeedInfoError{
			Missing: needInfo.Missing,
			Message: needInfo.Message,
		}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(res.Body)
		return jsonapi.InvalidStatusError{
			Status: res.StatusCode,
			Body:   string(body),
		}
	}
	if _, err = io.Copy(w, res.Body); err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}
