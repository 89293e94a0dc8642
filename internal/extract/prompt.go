// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"

	"github.com/pdiddy/advice-engine/internal/httputil"
	"github.com/pdiddy/advice-engine/pkg/types"
)

// extractionPromptTmpl is sent to the oracle once per chunk. The quote length
// target is advisory; nothing downstream truncates the quote.
var extractionPromptTmpl = template.Must(template.New("extraction").Parse(`You are extracting product advice from a podcast transcript segment.

Guest: {{.Guest}}
Episode: {{.Episode}}

Transcript segment:
---
{{.Chunk}}
---

Analyze this segment and extract any actionable product advice. If there's meaningful advice for product managers, founders, or tech leaders, extract it.

Available topics: {{.Topics}}

Respond in JSON format:
{
  "hasAdvice": true/false,
  "topics": ["topic1", "topic2"],
  "insight": "1-2 sentence summary of the advice",
  "quote": "The most impactful direct quote (keep it concise, under 200 chars)",
  "context": "What question or situation prompted this advice"
}

If the segment is just small talk, introductions, ads, or doesn't contain actionable advice, return:
{"hasAdvice": false}

Important:
- Only extract genuine insights, not obvious statements
- The quote should be a direct excerpt from the transcript
- Topics must be from the provided list
- Be selective - not every segment has advice worth extracting`))

// RenderPrompt executes the extraction prompt for one chunk.
func RenderPrompt(chunk, guest, episode string) (string, error) {
	var buf bytes.Buffer
	err := extractionPromptTmpl.Execute(&buf, struct {
		Guest, Episode, Chunk, Topics string
	}{
		Guest:   guest,
		Episode: episode,
		Chunk:   chunk,
		Topics:  strings.Join(types.TopicStrings(), ", "),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// ClaudeBackend calls the Claude Messages API.
type ClaudeBackend struct {
	APIKey string
	Client *http.Client

	// MaxRetries bounds retries on 429/503/529 responses (0 uses the httputil default).
	MaxRetries int
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
	Usage   claudeUsage     `json:"usage"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Complete sends the prompt as a single user message and returns the first
// text block of the reply.
func (c *ClaudeBackend) Complete(ctx context.Context, req Request) (Completion, error) {
	bodyBytes, err := json.Marshal(claudeRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		Messages:  []claudeMessage{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return Completion{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return Completion{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := httputil.DoWithRetry(ctx, c.Client, httpReq, c.MaxRetries)
	if err != nil {
		return Completion{}, fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Completion{}, fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return Completion{}, fmt.Errorf("decoding Claude response: %w", err)
	}

	out := Completion{
		InputTokens:  cResp.Usage.InputTokens,
		OutputTokens: cResp.Usage.OutputTokens,
	}
	for _, block := range cResp.Content {
		if block.Type == "text" {
			out.Text = block.Text
			return out, nil
		}
	}
	return out, nil
}
