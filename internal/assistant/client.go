// Package assistant wraps the hosted conversational-assistant API:
// thread creation, message append, and run execution with a bounded
// status-poll loop.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/keithn-tech/slack-gpt5-bot/internal/config"
	apperrors "github.com/keithn-tech/slack-gpt5-bot/internal/errors"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Terminal run statuses reported by the remote API.
const (
	statusCompleted = "completed"
	statusFailed    = "failed"
	statusCancelled = "cancelled"
	statusExpired   = "expired"
)

type Client struct {
	baseURL      string
	apiKey       string
	assistantID  string
	pollInterval time.Duration
	waitBudget   time.Duration
	client       *http.Client
}

func NewClient(baseURL, apiKey, assistantID string, pollInterval, waitBudget time.Duration) *Client {
	return &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		assistantID:  assistantID,
		pollInterval: pollInterval,
		waitBudget:   waitBudget,
		client: &http.Client{
			Timeout: config.AssistantRequestTimeout,
		},
	}
}

type threadResponse struct {
	ID string `json:"id"`
}

type runResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type messageText struct {
	Value string `json:"value"`
}

type messageContent struct {
	Type string       `json:"type"`
	Text *messageText `json:"text,omitempty"`
}

type message struct {
	ID      string           `json:"id"`
	Role    string           `json:"role"`
	Content []messageContent `json:"content"`
}

type messageList struct {
	Data []message `json:"data"`
}

// CreateThread creates a new remote conversation thread and returns its id.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	var resp threadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/threads", map[string]any{}, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// AddMessage appends a message to the remote thread.
func (c *Client) AddMessage(ctx context.Context, threadID, role, text string) error {
	return c.doJSON(ctx, http.MethodPost, "/threads/"+threadID+"/messages", map[string]string{
		"role":    role,
		"content": text,
	}, nil)
}

// RunAndWait submits one run on the thread and polls its status at a
// fixed interval until it is terminal or the wait budget runs out. On
// completion it returns the latest assistant message text. A budget
// overrun yields RUN_TIMEOUT, distinct from terminal failure: the
// remote run is not cancelled and may still finish on its own.
func (c *Client) RunAndWait(ctx context.Context, threadID string) (string, error) {
	var run runResponse
	if err := c.doJSON(ctx, http.MethodPost, "/threads/"+threadID+"/runs", map[string]string{
		"assistant_id": c.assistantID,
	}, &run); err != nil {
		return "", err
	}

	start := time.Now()
	deadline := start.Add(c.waitBudget)

	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	for {
		var status runResponse
		if err := c.doJSON(ctx, http.MethodGet, "/threads/"+threadID+"/runs/"+run.ID, nil, &status); err != nil {
			return "", err
		}

		switch status.Status {
		case statusCompleted:
			log.Debug().
				Str("threadId", threadID).
				Str("runId", run.ID).
				Dur("elapsed", time.Since(start)).
				Msg("assistant run completed")
			return c.latestAssistantMessage(ctx, threadID)
		case statusFailed, statusCancelled, statusExpired:
			return "", apperrors.RunFailed(status.Status)
		}

		if !time.Now().Before(deadline) {
			log.Warn().
				Str("threadId", threadID).
				Str("runId", run.ID).
				Str("lastStatus", status.Status).
				Dur("elapsed", time.Since(start)).
				Msg("assistant run wait budget exhausted")
			return "", apperrors.RunTimeout()
		}

		timer.Reset(c.pollInterval)
		select {
		case <-ctx.Done():
			return "", apperrors.RunTimeout().WithCause(ctx.Err())
		case <-timer.C:
		}
	}
}

// latestAssistantMessage fetches the thread messages (newest first) and
// returns the text of the most recent assistant message.
func (c *Client) latestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	var list messageList
	if err := c.doJSON(ctx, http.MethodGet, "/threads/"+threadID+"/messages", nil, &list); err != nil {
		return "", err
	}

	for _, msg := range list.Data {
		if msg.Role != RoleAssistant {
			continue
		}
		for _, content := range msg.Content {
			if content.Text != nil {
				return content.Text.Value, nil
			}
		}
	}

	return "", apperrors.Internal("assistant run completed without a reply")
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenAI-Beta", "assistants=v2")

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.Upstream("assistant", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Error().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("assistant api call failed")
		return apperrors.Upstream("assistant", fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, detail))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Upstream("assistant", fmt.Errorf("decode response: %w", err))
	}
	return nil
}
