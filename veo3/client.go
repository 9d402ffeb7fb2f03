package veo3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/config"

	"golang.org/x/time/rate"
)

// Client is the production Generator against the KIE VEO3 HTTP API.
//
// The submit limiter is the account-level floor between consecutive
// submissions. It lives on the client, and all concurrent jobs must share
// one client instance: the provider rate-limits by account, not by job,
// and violating the floor produces hard failures rather than backpressure.
type Client struct {
	cfg        config.VEO3Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(cfg config.VEO3Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(cfg.SubmitFloor()), 1),
	}
}

type submitRequest struct {
	Prompt      string   `json:"prompt"`
	Model       string   `json:"model"`
	AspectRatio string   `json:"aspectRatio"`
	Seeds       int      `json:"seeds,omitempty"`
	ImageURLs   []string `json:"imageUrls,omitempty"`
	Duration    int      `json:"duration,omitempty"`
}

type submitResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

// Submit blocks on the shared rate floor, then posts the generation request.
func (c *Client) Submit(ctx context.Context, prompt string, opts SubmitOptions) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("submit floor wait: %w", err)
	}

	reqBody := submitRequest{
		Prompt:      prompt,
		Model:       "veo3_fast",
		AspectRatio: opts.AspectRatio,
		Seeds:       opts.IdentitySeed,
		Duration:    opts.DurationSeconds,
	}
	if opts.ReferenceImageURL != "" {
		reqBody.ImageURLs = []string{opts.ReferenceImageURL}
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal submit request: %w", err)
	}

	url := c.cfg.APIBase + "/api/v1/veo/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("submit rejected: 429 too many requests: %s", respBody)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("submit status %d: %s", resp.StatusCode, respBody)
	}

	var parsed submitResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if parsed.Code != 200 || parsed.Data.TaskID == "" {
		return "", fmt.Errorf("submit rejected: code %d: %s", parsed.Code, parsed.Msg)
	}
	return parsed.Data.TaskID, nil
}

type recordInfoResponse struct {
	Code int `json:"code"`
	Data struct {
		TaskID      string `json:"taskId"`
		SuccessFlag int    `json:"successFlag"` // 0 generating, 1 success, 2/3 failed
		Response    struct {
			ResultURLs []string `json:"resultUrls"`
		} `json:"response"`
		ErrorMessage string `json:"errorMessage"`
	} `json:"data"`
}

// Poll returns one status snapshot for a task.
func (c *Client) Poll(ctx context.Context, taskID string) (PollResult, error) {
	url := fmt.Sprintf("%s/api/v1/veo/record-info?taskId=%s", c.cfg.APIBase, taskID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return PollResult{}, fmt.Errorf("create poll request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PollResult{}, fmt.Errorf("poll request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return PollResult{}, fmt.Errorf("poll status %d: %s", resp.StatusCode, respBody)
	}

	var parsed recordInfoResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return PollResult{}, fmt.Errorf("decode poll response: %w", err)
	}

	switch parsed.Data.SuccessFlag {
	case 0:
		return PollResult{Status: StatusRunning}, nil
	case 1:
		if len(parsed.Data.Response.ResultURLs) == 0 {
			return PollResult{}, fmt.Errorf("task %s succeeded with no result URL", taskID)
		}
		return PollResult{Status: StatusSucceeded, ResultURL: parsed.Data.Response.ResultURLs[0]}, nil
	default:
		return PollResult{Status: StatusFailed, ErrorMessage: parsed.Data.ErrorMessage}, nil
	}
}

// Download streams the finished video to destPath.
func (c *Client) Download(ctx context.Context, resultURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return fmt.Errorf("create download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create segment dir: %w", err)
	}
	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create segment file: %w", err)
	}
	defer f.Close()
	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return fmt.Errorf("write segment file: %w", err)
	}
	log.Printf("[veo3] downloaded %s (%d bytes)", destPath, n)
	return nil
}
