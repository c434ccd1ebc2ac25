package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"transcribeapi/pkg/logger"
)

// polishSystemPrompt is the fixed instruction given to the large-model
// polish step: keep language, preserve numerals, never invent content.
const polishSystemPrompt = `You lightly copy-edit a speech-to-text transcript. ` +
	`Keep the original language. Preserve numerals, units, and medical codes exactly as given. ` +
	`Fix obvious grammar and punctuation only. Do not add, remove, or invent any content. ` +
	`Return only the edited transcript, nothing else.`

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// PolishClient calls an external large-model API to lightly copy-edit
// the numeral-normalisation step's output. Any error, timeout, or
// unparseable response is non-fatal: callers fall back to the input
// unchanged.
type PolishClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewPolishClient constructs a PolishClient.
func NewPolishClient(baseURL, apiKey, model string, timeout time.Duration) *PolishClient {
	return &PolishClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Polish sends text to the external model and returns the edited result.
// On any failure it returns text unchanged and a non-nil error for the
// caller to log; it never panics and never blocks past the client timeout.
func (c *PolishClient) Polish(ctx context.Context, text string) (string, error) {
	if c.apiKey == "" {
		return text, fmt.Errorf("polish client not configured")
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: polishSystemPrompt},
			{Role: "user", Content: text},
		},
		Stream: false,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return text, fmt.Errorf("marshal polish request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return text, fmt.Errorf("build polish request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		logger.Warn("polish request failed", "error", err.Error(), "duration", time.Since(start).String())
		return text, fmt.Errorf("polish request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		logger.Warn("polish request returned non-200", "status", resp.StatusCode, "body", truncate(string(body), 300))
		return text, fmt.Errorf("polish API error: %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return text, fmt.Errorf("decode polish response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return text, fmt.Errorf("polish response had no content")
	}

	logger.Debug("polish request ok", "model", c.model, "duration", time.Since(start).String())
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
