// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/advice-engine/pkg/types"
)

// QueryFile is a saved lookup: the request, the advice it returned, and a
// summary. A saved file can be reviewed or replayed without the index.
type QueryFile struct {
	Request AdviceRequest        `yaml:"request"`
	Advice  []types.AdviceRecord `yaml:"advice"`
	Summary QuerySummary         `yaml:"summary"`
}

// QuerySummary stores match statistics and a timestamp.
type QuerySummary struct {
	TopicsMatched []types.Topic `yaml:"topics_matched"`
	TotalMatches  int           `yaml:"total_matches"`
	Returned      int           `yaml:"returned"`
	IndexPath     string        `yaml:"index_path,omitempty"`
	Timestamp     time.Time     `yaml:"timestamp"`
}

// WriteQueryFile saves a request and its response to a YAML file.
func WriteQueryFile(path string, req AdviceRequest, resp Response, indexPath string) error {
	qf := QueryFile{
		Request: req,
		Advice:  resp.Advice,
		Summary: QuerySummary{
			TopicsMatched: resp.TopicsMatched,
			TotalMatches:  resp.TotalMatches,
			Returned:      len(resp.Advice),
			IndexPath:     indexPath,
			Timestamp:     time.Now().UTC(),
		},
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}

// Response rebuilds the saved response.
func (qf *QueryFile) Response() Response {
	return Response{
		Advice:        qf.Advice,
		TopicsMatched: qf.Summary.TopicsMatched,
		TotalMatches:  qf.Summary.TotalMatches,
	}
}
