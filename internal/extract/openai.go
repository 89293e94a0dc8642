// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// schemaPayload mirrors the JSON object the prompt asks for. With strict
// structured output every field is required, so a no-advice answer arrives
// with empty topics and strings.
type schemaPayload struct {
	HasAdvice bool     `json:"hasAdvice"`
	Topics    []string `json:"topics"`
	Insight   string   `json:"insight"`
	Quote     string   `json:"quote"`
	Context   string   `json:"context"`
}

var adviceSchema = generateSchema[schemaPayload]()

// OpenAIBackend calls the OpenAI Responses API with a strict JSON schema.
type OpenAIBackend struct {
	client *openai.Client
}

// NewOpenAIBackend builds a backend authenticated with apiKey. Extra options
// (base URL, HTTP client) are applied after the key.
func NewOpenAIBackend(apiKey string, opts ...option.RequestOption) *OpenAIBackend {
	all := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(all...)
	return &OpenAIBackend{client: &client}
}

// Complete sends the prompt as one user message and returns the output text.
func (b *OpenAIBackend) Complete(ctx context.Context, req Request) (Completion, error) {
	params := responses.ResponseNewParams{
		Model:           req.Model,
		MaxOutputTokens: openai.Int(int64(req.MaxTokens)),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(req.Prompt, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        "AdviceExtraction",
					Schema:      adviceSchema,
					Strict:      openai.Bool(true),
					Description: openai.String("Advice extracted from one transcript chunk"),
					Type:        "json_schema",
				},
			},
		},
	}

	resp, err := b.client.Responses.New(ctx, params)
	if err != nil {
		return Completion{}, fmt.Errorf("calling OpenAI API: %w", err)
	}

	return Completion{
		Text:         resp.OutputText(),
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}

// generateSchema reflects T into a JSON schema map that satisfies OpenAI's
// strict mode: every object closed and every property required.
func generateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	b, err := reflector.Reflect(v).MarshalJSON()
	if err != nil {
		panic(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		panic(err)
	}
	closeObjects(m)
	return m
}

func closeObjects(schema map[string]any) {
	if t, ok := schema["type"].(string); ok && t == "object" {
		schema["additionalProperties"] = false
		if props, ok := schema["properties"].(map[string]any); ok {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			schema["required"] = required
		}
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		for _, p := range props {
			if pm, ok := p.(map[string]any); ok {
				closeObjects(pm)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		closeObjects(items)
	}
}
