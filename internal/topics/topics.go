// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package topics maps free-form topic strings from users onto the closed
// advice taxonomy.
package topics

import (
	"strings"

	"github.com/pdiddy/advice-engine/pkg/types"
)

// aliases maps common phrasings to taxonomy topics. Keys are in normalized
// form; multi-word phrasings are registered with both spaces and hyphens.
var aliases = buildAliases(map[string]types.Topic{
	"pmf":                     types.TopicProductMarketFit,
	"product market fit":      types.TopicProductMarketFit,
	"kpis":                    types.TopicMetrics,
	"okrs":                    types.TopicMetrics,
	"north star":              types.TopicMetrics,
	"team":                    types.TopicHiring,
	"recruiting":              types.TopicHiring,
	"management":              types.TopicLeadership,
	"prioritization":          types.TopicRoadmap,
	"planning":                types.TopicRoadmap,
	"monetization":            types.TopicPricing,
	"b2b":                     types.TopicEnterprise,
	"b2c":                     types.TopicConsumer,
	"marketplace":             types.TopicConsumer,
	"ux":                      types.TopicDesign,
	"user research":           types.TopicDesign,
	"experiments":             types.TopicAnalytics,
	"a/b testing":             types.TopicAnalytics,
	"ab testing":              types.TopicAnalytics,
	"shipping":                types.TopicExecution,
	"speed":                   types.TopicExecution,
	"artificial intelligence": types.TopicAI,
	"llm":                     types.TopicAI,
	"llms":                    types.TopicAI,
	"machine learning":        types.TopicAI,
	"fundraise":               types.TopicFundraising,
	"investors":               types.TopicFundraising,
	"vc":                      types.TopicFundraising,
	"virality":                types.TopicGrowth,
	"acquisition":             types.TopicGrowth,
	"retention":               types.TopicGrowth,
})

func buildAliases(src map[string]types.Topic) map[string]types.Topic {
	out := make(map[string]types.Topic, 2*len(src))
	for phrase, topic := range src {
		out[phrase] = topic
		out[strings.ReplaceAll(phrase, " ", "-")] = topic
	}
	return out
}

// Normalize maps input to a taxonomy topic. Input is lowercased, trimmed,
// and internal whitespace runs become single hyphens before the lookup. The
// second result is false when nothing matches.
func Normalize(input string) (types.Topic, bool) {
	key := strings.Join(strings.Fields(strings.ToLower(input)), "-")
	if key == "" {
		return "", false
	}
	if t := types.Topic(key); t.Valid() {
		return t, true
	}
	if t, ok := aliases[key]; ok {
		return t, true
	}
	return "", false
}

// NormalizeAll normalizes each input, dropping misses and duplicates while
// preserving first-seen order. The second result lists inputs that matched
// nothing.
func NormalizeAll(inputs []string) ([]types.Topic, []string) {
	var (
		out     []types.Topic
		unknown []string
		seen    = make(map[types.Topic]bool, len(inputs))
	)
	for _, in := range inputs {
		t, ok := Normalize(in)
		if !ok {
			unknown = append(unknown, in)
			continue
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, unknown
}
