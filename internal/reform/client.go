package reform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultRequestTimeout = 20 * time.Second

	reformulateSystemPrompt = "Tu es un journaliste spécialisé en Formule 1. " +
		"Réécris l'actualité fournie en un court paragraphe factuel, en français, " +
		"sans émojis et sans inventer de détails. Réponds uniquement avec le texte."

	chatSystemPrompt = "Tu es le bot 'En Pôle Position', expert en Formule 1."
)

// Client calls an OpenAI-compatible chat-completions endpoint for summary
// reformulation and for the conversational assistant.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

func NewClient(endpoint, model, apiKey string) *Client {
	return &Client{
		endpoint: strings.TrimSpace(endpoint),
		model:    strings.TrimSpace(model),
		apiKey:   strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
	}
}

// Reformulate turns a confirmed group's raw text into a publish-ready
// summary. Callers substitute the candidate title on any error.
func (c *Client) Reformulate(ctx context.Context, candidateTitle, rawText string, urls []string) (string, error) {
	var prompt strings.Builder
	prompt.WriteString("Titre candidat: ")
	prompt.WriteString(strings.TrimSpace(candidateTitle))
	if text := strings.TrimSpace(rawText); text != "" {
		prompt.WriteString("\n\nDépêches brutes:\n")
		prompt.WriteString(text)
	}
	if len(urls) > 0 {
		prompt.WriteString("\n\nSources:\n")
		prompt.WriteString(strings.Join(urls, "\n"))
	}

	return c.complete(ctx, reformulateSystemPrompt, prompt.String())
}

// Chat answers one assistant question with the En Pôle Position persona.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	return c.complete(ctx, chatSystemPrompt, message)
}

func (c *Client) complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("reform client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("reform client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userMessage},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("completion error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}

	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("completion response is empty")
	}
	return content, nil
}
