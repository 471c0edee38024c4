// Package backend implements the HTTP client for the recognition/lookup backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/mreilly/povox/internal/config"
	"github.com/mreilly/povox/internal/reply"
)

// ErrTransport marks network-level or non-JSON submit failures. The session
// controller maps it to the erroring state.
var ErrTransport = errors.New("backend transport failure")

// maxAudioBytes caps feedback-audio downloads; turn prompts are short clips.
const maxAudioBytes = 16 << 20

// Client talks to one recognition/lookup backend instance.
type Client struct {
	baseURL       string
	healthPath    string
	uploadTimeout time.Duration
	fetchTimeout  time.Duration
	httpClient    *http.Client
	logger        *slog.Logger
}

// New constructs a backend client from runtime config.
func New(cfg config.BackendConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:       strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		healthPath:    cfg.HealthPath,
		uploadTimeout: time.Duration(cfg.UploadTimeoutMS) * time.Millisecond,
		fetchTimeout:  time.Duration(cfg.FetchTimeoutMS) * time.Millisecond,
		httpClient:    &http.Client{},
		logger:        logger,
	}
}

// Submit uploads one turn's captured audio and decodes the structured reply.
// Any transport error or non-JSON payload fails with ErrTransport.
func (c *Client) Submit(ctx context.Context, audio []byte) (reply.Reply, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", "recording.wav")
	if err != nil {
		return reply.Reply{}, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return reply.Reply{}, fmt.Errorf("write upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return reply.Reply{}, fmt.Errorf("close upload form: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return reply.Reply{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return reply.Reply{}, fmt.Errorf("%w: submit audio: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return reply.Reply{}, fmt.Errorf("%w: submit audio: HTTP %d", ErrTransport, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		return reply.Reply{}, fmt.Errorf("%w: non-JSON response (content-type %q)", ErrTransport, contentType)
	}

	var decoded reply.Reply
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return reply.Reply{}, fmt.Errorf("%w: decode reply: %v", ErrTransport, err)
	}
	return decoded, nil
}

// FeedbackAudio fetches the current turn's synthesized-speech resource. Any
// content type is tolerated; the blob is returned as-is.
func (c *Client) FeedbackAudio(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get-ai-audio", nil)
	if err != nil {
		return nil, fmt.Errorf("build audio request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feedback audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch feedback audio: HTTP %d", resp.StatusCode)
	}

	blob, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("read feedback audio: %w", err)
	}
	return blob, nil
}

// Reset notifies the backend to clear its conversation state. Best effort;
// the response body is not interpreted.
func (c *Client) Reset(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/reset", nil)
	if err != nil {
		return fmt.Errorf("build reset request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reset backend: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 256))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("reset backend: HTTP %d", resp.StatusCode)
	}
	return nil
}

// Ready probes the configured health path. Used by doctor.
func (c *Client) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.healthPath, nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe backend: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 256))

	if resp.StatusCode < 200 || resp.StatusCode >= 500 {
		return fmt.Errorf("probe backend: HTTP %d", resp.StatusCode)
	}
	return nil
}
