// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// compareConcurrency bounds in-flight oracle calls during a comparison.
const compareConcurrency = 4

// ModelReport records one model's answer to the same extraction prompt.
type ModelReport struct {
	Model        string        `json:"model" yaml:"model"`
	Outcome      string        `json:"outcome" yaml:"outcome"`
	Output       string        `json:"output" yaml:"output"`
	InputTokens  int           `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int           `json:"output_tokens" yaml:"output_tokens"`
	Elapsed      time.Duration `json:"elapsed" yaml:"elapsed"`
	Error        string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// CompareModels runs the extraction prompt for chunk against each model and
// reports raw output and token usage in the order models were given. A
// failing model is reported, not returned as an error.
func CompareModels(ctx context.Context, oracle Oracle, chunk, guest string, models []string, maxTokens int) ([]ModelReport, error) {
	prompt, err := RenderPrompt(chunk, guest, guest)
	if err != nil {
		return nil, err
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	reports := make([]ModelReport, len(models))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(compareConcurrency)

	for i, model := range models {
		g.Go(func() error {
			start := time.Now()
			c, err := oracle.Complete(gCtx, Request{Prompt: prompt, Model: model, MaxTokens: maxTokens})
			rep := ModelReport{
				Model:   model,
				Elapsed: time.Since(start).Round(time.Millisecond),
			}
			if err != nil {
				rep.Outcome = OutcomeFailed.String()
				rep.Error = err.Error()
			} else {
				rep.Output = c.Text
				rep.InputTokens = c.InputTokens
				rep.OutputTokens = c.OutputTokens
				rep.Outcome = ParseResponse(c.Text).Outcome.String()
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
