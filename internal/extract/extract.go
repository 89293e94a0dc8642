// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns transcript chunks into structured advice by calling
// an external text-generation oracle and validating its free-text reply.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/advice-engine/pkg/types"
)

// Oracle abstracts the remote model so tests can supply a mock.
type Oracle interface {
	Complete(ctx context.Context, req Request) (Completion, error)
}

// Request is one prompt sent to the oracle.
type Request struct {
	Prompt    string
	Model     string
	MaxTokens int
}

// Completion is the oracle's free-text reply plus token usage when known.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Outcome classifies one extraction attempt.
type Outcome int

const (
	// OutcomeNoAdvice: the oracle answered {"hasAdvice": false}.
	OutcomeNoAdvice Outcome = iota
	// OutcomeAdvice: a well-formed advice object; topics may still be empty
	// after taxonomy filtering.
	OutcomeAdvice
	// OutcomeUnparseable: no JSON object, or one without the required shape.
	OutcomeUnparseable
	// OutcomeFailed: the oracle call itself failed after retries.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoAdvice:
		return "no_advice"
	case OutcomeAdvice:
		return "advice"
	case OutcomeUnparseable:
		return "unparseable"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// AdviceFields are the validated fields of an advice answer.
type AdviceFields struct {
	Topics  []types.Topic
	Insight string
	Quote   string
	Context string
}

// Result is the tagged outcome of extracting one chunk. Advice is set only
// for OutcomeAdvice; Err only for OutcomeUnparseable and OutcomeFailed.
type Result struct {
	Outcome Outcome
	Advice  AdviceFields
	Err     error
	Usage   Completion
}

// Keep reports whether the result should become an advice record.
func (r Result) Keep() bool {
	return r.Outcome == OutcomeAdvice && len(r.Advice.Topics) > 0
}

const (
	DefaultMaxTokens  = 500
	DefaultMaxRetries = 2
)

// ClientOptions configures a Client. Zero values use defaults.
type ClientOptions struct {
	Model      string
	MaxTokens  int
	MaxRetries int
	Logger     *slog.Logger
}

// Client formats chunks into prompts, calls the oracle, and parses replies.
// Extract never returns an error: every failure is folded into the Result.
type Client struct {
	oracle     Oracle
	model      string
	maxTokens  int
	maxRetries int
	logger     *slog.Logger
}

// NewClient returns a Client for the given oracle.
func NewClient(oracle Oracle, opts ClientOptions) *Client {
	c := &Client{
		oracle:     oracle,
		model:      opts.Model,
		maxTokens:  opts.MaxTokens,
		maxRetries: opts.MaxRetries,
		logger:     opts.Logger,
	}
	if c.maxTokens <= 0 {
		c.maxTokens = DefaultMaxTokens
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Model returns the model identifier sent with each request.
func (c *Client) Model() string {
	return c.model
}

// Extract asks the oracle for advice in one chunk of transcript text.
func (c *Client) Extract(ctx context.Context, chunk, guest, episode string) Result {
	prompt, err := RenderPrompt(chunk, guest, episode)
	if err != nil {
		c.logger.Error("rendering extraction prompt", "guest", guest, "err", err)
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("rendering prompt: %w", err)}
	}

	req := Request{Prompt: prompt, Model: c.model, MaxTokens: c.maxTokens}
	completion, err := callWithRetry(ctx, c.oracle, req, c.maxRetries)
	if err != nil {
		c.logger.Warn("oracle call failed", "guest", guest, "episode", episode, "err", err)
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	res := ParseResponse(completion.Text)
	res.Usage = completion
	if res.Outcome == OutcomeUnparseable {
		c.logger.Warn("unparseable oracle response", "guest", guest, "episode", episode, "err", res.Err)
	}
	return res
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// callWithRetry calls the oracle, retrying transport errors with exponential backoff.
func callWithRetry(ctx context.Context, oracle Oracle, req Request, maxRetries int) (Completion, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return Completion{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := oracle.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return Completion{}, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// jsonObjectPattern locates the span from the first '{' to the last '}'.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

var (
	errNoJSON         = errors.New("no JSON object found in response")
	errMissingVerdict = errors.New("response JSON has no hasAdvice field")
	errMissingInsight = errors.New("advice response has no insight")
)

type rawAnswer struct {
	HasAdvice *bool    `json:"hasAdvice"`
	Topics    []string `json:"topics"`
	Insight   string   `json:"insight"`
	Quote     string   `json:"quote"`
	Context   string   `json:"context"`
}

// ParseResponse recovers the first top-level JSON object from free text and
// validates it. Topics outside the taxonomy are dropped silently.
func ParseResponse(text string) Result {
	loc := jsonObjectPattern.FindStringIndex(text)
	if loc == nil {
		return Result{Outcome: OutcomeUnparseable, Err: errNoJSON}
	}

	var raw rawAnswer
	// Decoding from the first brace stops after one complete value, so
	// trailing prose that contains braces does not break the parse.
	dec := json.NewDecoder(strings.NewReader(text[loc[0]:]))
	if err := dec.Decode(&raw); err != nil {
		raw = rawAnswer{}
		if err2 := json.Unmarshal([]byte(text[loc[0]:loc[1]]), &raw); err2 != nil {
			return Result{Outcome: OutcomeUnparseable, Err: fmt.Errorf("parsing response JSON: %w", err)}
		}
	}

	if raw.HasAdvice == nil {
		return Result{Outcome: OutcomeUnparseable, Err: errMissingVerdict}
	}
	if !*raw.HasAdvice {
		return Result{Outcome: OutcomeNoAdvice}
	}

	insight := strings.TrimSpace(raw.Insight)
	if insight == "" {
		return Result{Outcome: OutcomeUnparseable, Err: errMissingInsight}
	}

	return Result{
		Outcome: OutcomeAdvice,
		Advice: AdviceFields{
			Topics:  types.FilterTopics(raw.Topics),
			Insight: insight,
			Quote:   strings.TrimSpace(raw.Quote),
			Context: strings.TrimSpace(raw.Context),
		},
	}
}
