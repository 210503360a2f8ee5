package benchmark

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrMissingResults is returned when a results file does not exist
var ErrMissingResults = errors.New("results file not found")

// ResultsPath is the results file of a task inside dir
func ResultsPath(dir, task string) string {
	return filepath.Join(dir, task+"_results.yaml")
}

// SummaryPath is the summary file of a task inside dir
func SummaryPath(dir, task string) string {
	return filepath.Join(dir, task+"_summary.yaml")
}

// SaveResults writes res as YAML, creating parent directories
func SaveResults(res *Results, path string) error {
	return save(res, path)
}

// LoadResults reads results written by SaveResults
func LoadResults(path string) (*Results, error) {
	res := &Results{}
	if err := load(path, res); err != nil {
		return nil, err
	}
	if res.Entries == nil {
		return nil, errors.Errorf("%s: no entries", path)
	}
	return res, nil
}

// SaveSummary writes s as YAML, creating parent directories
func SaveSummary(s *Summary, path string) error {
	return save(s, path)
}

// LoadSummary reads a summary written by SaveSummary
func LoadSummary(path string) (*Summary, error) {
	s := &Summary{}
	if err := load(path, s); err != nil {
		return nil, err
	}
	return s, nil
}

func save(v interface{}, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "error creating output directory")
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "error marshaling results")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "error writing results file")
	}
	return nil
}

func load(path string, v interface{}) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return errors.Wrap(ErrMissingResults, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "error reading results file")
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "error parsing %s", path)
	}
	return nil
}
