package bouncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"bulk-mail-verify-go/internal/config"
	"bulk-mail-verify-go/internal/model"
)

// Client talks to the bulk verification provider. Deliverability and catchall
// verification live on separate endpoint families with separate API keys;
// every method picks both by mode.
type Client struct {
	baseURL string
	keys    map[model.Mode]string
	http    *http.Client
}

// NewClient creates a provider client from configuration
func NewClient(cfg config.BouncerConfig) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: base,
		keys: map[model.Mode]string{
			model.ModeDeliverability: cfg.DeliverabilityAPIKey,
			model.ModeCatchall:       cfg.CatchallAPIKey,
		},
		http: &http.Client{Timeout: timeout},
	}
}

func batchPath(mode model.Mode) string {
	if mode == model.ModeCatchall {
		return "/v1/toxicity/list"
	}
	return "/v1.1/email/verify/batch"
}

// BatchStatus is the provider's progress report for one batch.
type BatchStatus struct {
	BatchID   string `json:"batchId"`
	Status    string `json:"status"`
	Processed int    `json:"processed"`
	Total     int    `json:"quantity"`
}

// Completed reports whether the provider has finished processing the batch.
func (s BatchStatus) Completed() bool {
	return s.Status == "completed"
}

// Result is one email outcome from a batch download. Deliverability batches
// populate Status, Reason, AcceptAll, Score and Provider; toxicity batches
// populate Toxicity.
type Result struct {
	Email     string `json:"email"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
	AcceptAll bool   `json:"accept_all"`
	Score     int    `json:"score"`
	Provider  string `json:"provider"`
	Toxicity  int    `json:"toxicity"`
}

// Credits is the remaining credit balance on one mode's API key.
type Credits struct {
	Credits int `json:"credits"`
}

type submitItem struct {
	Email string `json:"email"`
}

type submitResponse struct {
	BatchID string `json:"batchId"`
}

// SubmitBatch uploads emails for verification and returns the
// provider-assigned batch id.
func (c *Client) SubmitBatch(ctx context.Context, mode model.Mode, emails []string) (string, error) {
	if len(emails) == 0 {
		return "", ErrNoEmails
	}

	payload := make([]submitItem, 0, len(emails))
	for _, email := range emails {
		payload = append(payload, submitItem{Email: email})
	}

	var resp submitResponse
	if err := c.do(ctx, mode, http.MethodPost, batchPath(mode), payload, &resp); err != nil {
		return "", fmt.Errorf("submit batch: %w", err)
	}
	if resp.BatchID == "" {
		return "", fmt.Errorf("submit batch: provider returned no batch id")
	}
	return resp.BatchID, nil
}

// BatchStatus fetches current processing progress for one batch.
func (c *Client) BatchStatus(ctx context.Context, mode model.Mode, batchID string) (BatchStatus, error) {
	var status BatchStatus
	if err := c.do(ctx, mode, http.MethodGet, batchPath(mode)+"/"+batchID, nil, &status); err != nil {
		return BatchStatus{}, fmt.Errorf("batch status %s: %w", batchID, err)
	}
	return status, nil
}

// DownloadResults fetches the full result set of a completed batch.
func (c *Client) DownloadResults(ctx context.Context, mode model.Mode, batchID string) ([]Result, error) {
	var results []Result
	if err := c.do(ctx, mode, http.MethodGet, batchPath(mode)+"/"+batchID+"/download?download=all", nil, &results); err != nil {
		return nil, fmt.Errorf("download results %s: %w", batchID, err)
	}
	return results, nil
}

// Credits fetches the remaining credit balance for the mode's API key.
func (c *Client) Credits(ctx context.Context, mode model.Mode) (Credits, error) {
	var credits Credits
	if err := c.do(ctx, mode, http.MethodGet, "/v1.1/credits", nil, &credits); err != nil {
		return Credits{}, fmt.Errorf("credits: %w", err)
	}
	return credits, nil
}

// do performs one provider request and translates HTTP failures into the
// package's sentinel errors.
func (c *Client) do(ctx context.Context, mode model.Mode, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", c.keys[mode])
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrAuthFailed
	case resp.StatusCode == http.StatusPaymentRequired:
		return ErrOutOfCredits
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode >= 500:
		return ErrProviderUnavailable
	}
	return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
}
