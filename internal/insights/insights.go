// Package insights asks an OpenAI-compatible chat model to summarise a
// snippet for its author.
package insights

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
	DefaultEndpoint = "https://api.openai.com/v1/chat/completions"
	DefaultModel    = "gpt-4o-mini"
)

// Payload is what the model is told about a snippet.
type Payload struct {
	Title     string
	Kind      string
	Content   string
	Duration  float64
	TrimStart float64
	TrimEnd   float64
	Bookmarks []string
}

type Insights struct {
	Summary string
}

type Client struct {
	Endpoint string
	Model    string
	APIKey   string
	HTTP     *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const systemPrompt = "You review short screen recordings of programming work. " +
	"Summarise what the author did in a few sentences, then list anything worth revisiting."

func (c *Client) Generate(ctx context.Context, p Payload) (Insights, error) {
	if c.APIKey == "" {
		return Insights{}, fmt.Errorf("no API key configured")
	}
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	model := c.Model
	if model == "" {
		model = DefaultModel
	}
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(p)},
		},
	})
	if err != nil {
		return Insights{}, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Insights{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return Insights{}, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return Insights{}, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(b))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Insights{}, fmt.Errorf("failed to read response: %w", err)
	}
	if len(out.Choices) == 0 {
		return Insights{}, fmt.Errorf("API response had no choices")
	}
	return Insights{Summary: strings.TrimSpace(out.Choices[0].Message.Content)}, nil
}

func userPrompt(p Payload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\nKind: %s\n", p.Title, p.Kind)
	fmt.Fprintf(&b, "Length: %.1fs, kept %.1fs to %.1fs\n", p.Duration, p.TrimStart, p.TrimEnd)
	if len(p.Bookmarks) > 0 {
		b.WriteString("Bookmarks:\n")
		for _, bm := range p.Bookmarks {
			b.WriteString("- " + bm + "\n")
		}
	}
	if p.Content != "" {
		b.WriteString("\nContent:\n")
		b.WriteString(p.Content)
	}
	return b.String()
}
