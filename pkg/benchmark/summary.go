package benchmark

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Reducer collapses per-image values into one scalar. It returns NaN for an
// empty input.
type Reducer func(values []float64) float64

var reducers = map[string]Reducer{
	"mean":   Mean,
	"median": Median,
	"std":    Std,
	"min":    Min,
	"max":    Max,
}

// LookupReducer returns the reducer registered under name
func LookupReducer(name string) (Reducer, error) {
	f, ok := reducers[name]
	if !ok {
		return nil, errors.Errorf("unknown reducer %q", name)
	}
	return f, nil
}

// ReducerNames returns the registered reducer names, sorted
func ReducerNames() []string {
	names := make([]string, 0, len(reducers))
	for name := range reducers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}

func Median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Std is the population standard deviation
func Std(values []float64) float64 {
	switch len(values) {
	case 0:
		return math.NaN()
	case 1:
		return 0
	}
	_, std := stat.PopMeanStdDev(values, nil)
	return std
}

func Min(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return floats.Min(values)
}

func Max(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return floats.Max(values)
}

// Summary mirrors Results with every per-image list reduced to scalars
type Summary struct {
	Methods    []string `yaml:"methods"`
	Reducers   []string `yaml:"reducers"`
	ImageCount int      `yaml:"imageCount"`
	Complete   bool     `yaml:"complete"`

	Entries map[string][]*SummaryEntry `yaml:"entries"`
}

// SummaryEntry is the reduced form of a RatioEntry
type SummaryEntry struct {
	Requested float64 `yaml:"requested"`

	// Achieved is the mean achieved ratio over images
	Achieved float64 `yaml:"achieved"`

	// BPP maps a reducer name to the reduced bits per pixel
	BPP map[string]float64 `yaml:"bpp,omitempty"`

	// Values maps a metric name to reducer name to value
	Values map[string]map[string]float64 `yaml:"values"`
}

// Summarize reduces every per-image list of res with the named reducers
func Summarize(res *Results, names []string) (*Summary, error) {
	if len(names) == 0 {
		return nil, errors.New("no reducers given")
	}
	fns := make([]Reducer, len(names))
	for i, name := range names {
		f, err := LookupReducer(name)
		if err != nil {
			return nil, err
		}
		fns[i] = f
	}

	reduce := func(values []float64) map[string]float64 {
		out := make(map[string]float64, len(names))
		for i, name := range names {
			out[name] = fns[i](values)
		}
		return out
	}

	s := &Summary{
		Methods:    append([]string(nil), res.Methods...),
		Reducers:   append([]string(nil), names...),
		ImageCount: res.ImageCount,
		Complete:   res.Complete,
		Entries:    make(map[string][]*SummaryEntry, len(res.Entries)),
	}
	for method, entries := range res.Entries {
		out := make([]*SummaryEntry, len(entries))
		for i, e := range entries {
			se := &SummaryEntry{
				Requested: e.Requested,
				Achieved:  Mean(e.AchievedPerImage),
				Values:    make(map[string]map[string]float64, len(e.Values)),
			}
			if len(e.BPP) > 0 {
				se.BPP = reduce(e.BPP)
			}
			for metric, values := range e.Values {
				se.Values[metric] = reduce(values)
			}
			out[i] = se
		}
		s.Entries[method] = out
	}
	return s, nil
}
