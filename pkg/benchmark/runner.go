// Package benchmark sweeps every configured codec and compression ratio over
// a dataset and records the quality of each reconstruction.
package benchmark

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"compressbench/internal/models"
	"compressbench/pkg/bitrate"
	"compressbench/pkg/codec"
	"compressbench/pkg/metrics"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Dataset is a restartable, indexable image source
type Dataset interface {
	Len() int
	At(i int) (models.Sample, error)
}

// SweepError reports the image and codec call that stopped a sweep. Method
// is empty when the image itself could not be loaded.
type SweepError struct {
	Image  int
	Method string
	Ratio  float64
	Err    error
}

func (e *SweepError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("image %d: %v", e.Image, e.Err)
	}
	return fmt.Sprintf("image %d: %s at ratio %g: %v", e.Image, e.Method, e.Ratio, e.Err)
}

func (e *SweepError) Unwrap() error { return e.Err }

// Options configures a Runner
type Options struct {
	Codecs  []codec.Codec
	Ratios  []float64
	Metrics []string

	// Bitrate enables the bits-per-pixel estimate of every payload
	Bitrate bool

	// Workers is the number of images processed concurrently; values below
	// two run sequentially
	Workers int

	// Logger defaults to slog.Default()
	Logger *slog.Logger
}

// Runner performs the sweep
type Runner struct {
	codecs      []codec.Codec
	ratios      []float64
	metricNames []string
	metricFuncs []metrics.Func
	bitrate     bool
	workers     int
	logger      *slog.Logger
}

// NewRunner validates the options and resolves the metric names
func NewRunner(opts Options) (*Runner, error) {
	if len(opts.Codecs) == 0 {
		return nil, errors.New("no codecs configured")
	}
	if len(opts.Ratios) == 0 {
		return nil, errors.New("no ratios configured")
	}
	if len(opts.Metrics) == 0 {
		return nil, errors.New("no metrics configured")
	}

	seen := make(map[string]bool, len(opts.Codecs))
	for _, c := range opts.Codecs {
		if seen[c.Name()] {
			return nil, errors.Errorf("codec %q configured twice", c.Name())
		}
		seen[c.Name()] = true
	}

	r := &Runner{
		codecs:      opts.Codecs,
		ratios:      append([]float64(nil), opts.Ratios...),
		metricNames: append([]string(nil), opts.Metrics...),
		bitrate:     opts.Bitrate,
		workers:     opts.Workers,
		logger:      opts.Logger,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	for _, name := range opts.Metrics {
		f, err := metrics.Lookup(name)
		if err != nil {
			return nil, err
		}
		r.metricFuncs = append(r.metricFuncs, f)
	}
	return r, nil
}

// Methods returns the method names in sweep order
func (r *Runner) Methods() []string {
	names := make([]string, len(r.codecs))
	for i, c := range r.codecs {
		names[i] = c.Name()
	}
	return names
}

// Run sweeps the whole dataset. On failure it returns the images committed
// so far, marked incomplete, together with a *SweepError.
func (r *Runner) Run(ds Dataset) (*Results, error) {
	total := ds.Len()
	acc := NewAccumulator(r.Methods(), r.ratios, r.metricNames, total)
	start := time.Now()

	r.logger.Info("starting sweep",
		"images", total,
		"methods", len(r.codecs),
		"ratios", len(r.ratios),
		"workers", max(r.workers, 1))

	var err error
	if r.workers > 1 {
		err = r.runParallel(ds, acc)
	} else {
		err = r.runSequential(ds, acc)
	}

	res := acc.Results()
	res.Complete = err == nil
	if err != nil {
		r.logger.Error("sweep stopped", "committed", res.ImageCount, "error", err)
		return res, err
	}
	r.logger.Info("sweep finished", "images", res.ImageCount, "elapsed", time.Since(start).Round(time.Millisecond))
	return res, nil
}

func (r *Runner) runSequential(ds Dataset, acc *Accumulator) error {
	total := ds.Len()
	for i := 0; i < total; i++ {
		r.logger.Info(fmt.Sprintf("processing image %d/%d", i+1, total))
		rec, err := r.load(ds, i)
		if err != nil {
			return err
		}
		if err := acc.Commit(rec); err != nil {
			return &SweepError{Image: i, Err: err}
		}
	}
	return nil
}

// runParallel processes images concurrently and commits them in index order.
// Once an image fails, images with a higher index are skipped; lower ones
// still run so the committed prefix matches a sequential sweep.
func (r *Runner) runParallel(ds Dataset, acc *Accumulator) error {
	total := ds.Len()
	records := make([]*ImageRecord, total)
	errs := make([]error, total)

	var firstFailure atomic.Int64
	firstFailure.Store(int64(total))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i := 0; i < total; i++ {
		i := i // per-iteration copy; preserves Go 1.22+ loop semantics under go 1.21 directive
		g.Go(func() error {
			if int64(i) > firstFailure.Load() {
				return nil
			}
			r.logger.Info(fmt.Sprintf("processing image %d/%d", i+1, total))
			rec, err := r.load(ds, i)
			if err != nil {
				errs[i] = err
				for {
					cur := firstFailure.Load()
					if int64(i) >= cur || firstFailure.CompareAndSwap(cur, int64(i)) {
						break
					}
				}
				return err
			}
			records[i] = rec
			return nil
		})
	}
	_ = g.Wait()

	for i, rec := range records {
		if errs[i] != nil {
			return errs[i]
		}
		if err := acc.Commit(rec); err != nil {
			return &SweepError{Image: i, Err: err}
		}
	}
	return nil
}

func (r *Runner) load(ds Dataset, i int) (*ImageRecord, error) {
	sample, err := ds.At(i)
	if err != nil {
		return nil, &SweepError{Image: i, Err: errors.Wrap(err, "loading image")}
	}
	if sample.Image == nil {
		return nil, &SweepError{Image: i, Err: errors.New("dataset returned no image")}
	}
	return r.ProcessImage(i, sample)
}

// ProcessImage runs every (method, ratio) on one image and stages the scored
// reconstructions. Nothing is returned unless every call succeeded.
func (r *Runner) ProcessImage(index int, sample models.Sample) (*ImageRecord, error) {
	img := sample.Image
	pixels := img.Height * img.Width
	rec := &ImageRecord{
		Index:           index,
		Label:           sample.Label,
		Reconstructions: make([]Reconstruction, 0, len(r.codecs)*len(r.ratios)),
	}

	for _, c := range r.codecs {
		for j, ratio := range r.ratios {
			res, err := c.EncodeDecode(img, ratio)
			if err != nil {
				return nil, &SweepError{Image: index, Method: c.Name(), Ratio: ratio, Err: err}
			}

			out := Reconstruction{
				Method:     c.Name(),
				RatioIndex: j,
				Requested:  ratio,
				Achieved:   res.AchievedRatio,
				Param:      res.Param,
				Values:     make(map[string]float64, len(r.metricFuncs)),
			}
			for k, f := range r.metricFuncs {
				out.Values[r.metricNames[k]] = f(img, res.Image)
			}
			if r.bitrate {
				bpp, _, err := bitrate.Estimate(res.Payload, pixels)
				if err != nil {
					return nil, &SweepError{Image: index, Method: c.Name(), Ratio: ratio, Err: errors.Wrap(err, "estimating bit rate")}
				}
				out.BPP, out.HasBPP = bpp, true
			}
			rec.Reconstructions = append(rec.Reconstructions, out)

			r.logger.Debug("reconstructed",
				"image", index,
				"method", c.Name(),
				"ratio", ratio,
				"achieved", res.AchievedRatio,
				"param", res.Param)
		}
	}
	return rec, nil
}
