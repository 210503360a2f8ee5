package benchmark

import (
	"compressbench/internal/models"

	"github.com/pkg/errors"
)

// Results is the persisted outcome of a sweep, keyed by method name and
// ratio index. Every per-image slice is ordered by image index.
type Results struct {
	// Methods are the method names in configuration order
	Methods []string `yaml:"methods"`

	// Ratios are the requested ratios; entries are indexed the same way
	Ratios []float64 `yaml:"ratios"`

	// Metrics are the metric names recorded for every reconstruction
	Metrics []string `yaml:"metrics"`

	// ImageCount is the number of images committed so far
	ImageCount int `yaml:"imageCount"`

	// ImageTotal is the number of images in the dataset
	ImageTotal int `yaml:"imageTotal"`

	// Complete is false when the sweep stopped on an error
	Complete bool `yaml:"complete"`

	Entries map[string][]*RatioEntry `yaml:"entries"`
}

// RatioEntry holds every image's outcome for one method at one requested ratio
type RatioEntry struct {
	Requested float64 `yaml:"requested"`

	// Achieved is the ratio realised on the most recently committed image
	Achieved float64 `yaml:"achieved"`

	AchievedPerImage []float64 `yaml:"achievedPerImage"`
	Params           []int     `yaml:"params"`

	// BPP holds the estimated bits per pixel when bit-rate estimation is on
	BPP []float64 `yaml:"bpp,omitempty"`

	// Values maps a metric name to its per-image values
	Values map[string][]float64 `yaml:"values"`
}

// Reconstruction is the scored outcome of one codec call
type Reconstruction struct {
	Method     string
	RatioIndex int
	Requested  float64
	Achieved   float64
	Param      int

	// BPP is only meaningful when HasBPP is set
	BPP    float64
	HasBPP bool

	Values map[string]float64
}

// ImageRecord stages every reconstruction of one image. It is committed to
// an Accumulator only once all of them succeeded.
type ImageRecord struct {
	Index           int
	Label           string
	Reconstructions []Reconstruction
}

// MetricSamples flattens the record into one sample per metric value
func (r *ImageRecord) MetricSamples(metricOrder []string) []models.MetricSample {
	var out []models.MetricSample
	for _, rec := range r.Reconstructions {
		for _, name := range metricOrder {
			v, ok := rec.Values[name]
			if !ok {
				continue
			}
			out = append(out, models.MetricSample{
				Method:         rec.Method,
				RequestedRatio: rec.Requested,
				AchievedRatio:  rec.Achieved,
				Metric:         name,
				Value:          v,
			})
		}
	}
	return out
}

// Accumulator builds Results incrementally. It is owned by a single
// goroutine; concurrent sweeps each use their own.
type Accumulator struct {
	res *Results
}

// NewAccumulator prepares empty entries for every method and ratio
func NewAccumulator(methods []string, ratios []float64, metricNames []string, total int) *Accumulator {
	res := &Results{
		Methods:    append([]string(nil), methods...),
		Ratios:     append([]float64(nil), ratios...),
		Metrics:    append([]string(nil), metricNames...),
		ImageTotal: total,
		Entries:    make(map[string][]*RatioEntry, len(methods)),
	}
	for _, m := range methods {
		entries := make([]*RatioEntry, len(ratios))
		for i, r := range ratios {
			values := make(map[string][]float64, len(metricNames))
			for _, name := range metricNames {
				values[name] = []float64{}
			}
			entries[i] = &RatioEntry{
				Requested:        r,
				AchievedPerImage: []float64{},
				Params:           []int{},
				Values:           values,
			}
		}
		res.Entries[m] = entries
	}
	return &Accumulator{res: res}
}

// Commit appends a complete image record. A record that does not cover every
// (method, ratio, metric) combination is rejected without touching the
// accumulated results.
func (a *Accumulator) Commit(rec *ImageRecord) error {
	want := len(a.res.Methods) * len(a.res.Ratios)
	if len(rec.Reconstructions) != want {
		return errors.Errorf("image %d: %d reconstructions, want %d", rec.Index, len(rec.Reconstructions), want)
	}
	for _, r := range rec.Reconstructions {
		entries, ok := a.res.Entries[r.Method]
		if !ok || r.RatioIndex < 0 || r.RatioIndex >= len(entries) {
			return errors.Errorf("image %d: unexpected method %q ratio index %d", rec.Index, r.Method, r.RatioIndex)
		}
		for _, name := range a.res.Metrics {
			if _, ok := r.Values[name]; !ok {
				return errors.Errorf("image %d: %s missing metric %q", rec.Index, r.Method, name)
			}
		}
	}

	for _, r := range rec.Reconstructions {
		e := a.res.Entries[r.Method][r.RatioIndex]
		e.Achieved = r.Achieved
		e.AchievedPerImage = append(e.AchievedPerImage, r.Achieved)
		e.Params = append(e.Params, r.Param)
		if r.HasBPP {
			e.BPP = append(e.BPP, r.BPP)
		}
		for _, name := range a.res.Metrics {
			e.Values[name] = append(e.Values[name], r.Values[name])
		}
	}
	a.res.ImageCount++
	return nil
}

// Results returns the accumulated results. The accumulator must not be
// committed to afterwards.
func (a *Accumulator) Results() *Results {
	return a.res
}
