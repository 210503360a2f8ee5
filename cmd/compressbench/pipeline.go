package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"compressbench/internal/models"
	"compressbench/pkg/benchmark"
	"compressbench/pkg/codec"
	"compressbench/pkg/config"
	"compressbench/pkg/curve"
	"compressbench/pkg/dataset"
	"compressbench/pkg/imageio"
	"compressbench/pkg/patch"
	"compressbench/pkg/plotting"
	"compressbench/pkg/preprocess"
	"compressbench/pkg/visualization"

	"github.com/pkg/errors"
)

func codecOptions(cfg *config.Config) codec.Options {
	return codec.Options{
		PatchSize:     patch.Size{H: cfg.PatchSize.H, W: cfg.PatchSize.W},
		Interpolation: cfg.Rescale.Interpolation,
	}
}

func openDataset(cfg *config.Config) (*dataset.Dir, error) {
	return dataset.Open(cfg.Dataset.Dir, dataset.Options{
		Width:     cfg.Dataset.Size.W,
		Height:    cfg.Dataset.Size.H,
		Limit:     cfg.Dataset.Limit,
		Grayscale: cfg.Dataset.Grayscale,
	})
}

// runSweep returns whatever was committed even when the sweep fails
func runSweep(cfg *config.Config, logger *slog.Logger) (*benchmark.Results, error) {
	codecs, err := codec.NewAll(cfg.Methods, codecOptions(cfg))
	if err != nil {
		return nil, err
	}
	ds, err := openDataset(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("dataset opened", "dir", cfg.Dataset.Dir, "images", ds.Len(), "labels", len(ds.Labels()))

	runner, err := benchmark.NewRunner(benchmark.Options{
		Codecs:  codecs,
		Ratios:  cfg.Ratios,
		Metrics: cfg.Metrics,
		Bitrate: cfg.Processing.Bitrate,
		Workers: cfg.Processing.Workers,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	return runner.Run(ds)
}

func saveResults(cfg *config.Config, res *benchmark.Results) error {
	if err := benchmark.SaveResults(res, benchmark.ResultsPath(cfg.Output.Dir, cfg.Output.TaskName)); err != nil {
		return err
	}
	summary, err := benchmark.Summarize(res, cfg.SummaryReducers)
	if err != nil {
		return err
	}
	return benchmark.SaveSummary(summary, benchmark.SummaryPath(cfg.Output.Dir, cfg.Output.TaskName))
}

func xLabel(cfg *config.Config) string {
	if cfg.Plot.XLabel != "" {
		return cfg.Plot.XLabel
	}
	if benchmark.Axis(cfg.Plot.Axis) == benchmark.AxisBPP {
		return "Bits per pixel"
	}
	return "Compression ratio"
}

// aggregate interpolates every method's per-image curves of one metric onto
// the configured grid. Methods without a finite sample are left out.
func aggregate(cfg *config.Config, res *benchmark.Results, metric string, logger *slog.Logger) ([]*curve.Curve, error) {
	sets, err := benchmark.Curves(res, metric, benchmark.Axis(cfg.Plot.Axis))
	if err != nil {
		return nil, err
	}
	grid := curve.Linspace(cfg.Plot.GridStart, cfg.Plot.GridStop, cfg.Plot.GridNum)

	var curves []*curve.Curve
	for _, set := range sets {
		c, err := curve.Aggregate(set.Method, set.Images, grid)
		if errors.Is(err, curve.ErrNoData) {
			logger.Warn("no finite samples", "method", set.Method, "metric", metric)
			continue
		}
		if err != nil {
			return nil, err
		}
		if c.Skipped > 0 {
			logger.Warn("images without finite samples", "method", set.Method, "metric", metric, "skipped", c.Skipped)
		}
		curves = append(curves, c)
	}
	return curves, nil
}

func renderFigures(cfg *config.Config, res *benchmark.Results, logger *slog.Logger) ([]string, error) {
	if res.ImageCount == 0 {
		return nil, errors.New("no images in results")
	}

	var paths []string
	for _, metric := range res.Metrics {
		curves, err := aggregate(cfg, res, metric, logger)
		if err != nil {
			return paths, errors.Wrapf(err, "aggregating %s", metric)
		}
		if len(curves) == 0 {
			logger.Warn("nothing to plot", "metric", metric)
			continue
		}

		path := filepath.Join(cfg.Output.Dir, fmt.Sprintf("%s_%s.pdf", cfg.Output.TaskName, metric))
		err = plotting.Save(curves, plotting.Options{
			Title:  cfg.Plot.Title,
			XLabel: xLabel(cfg),
			YLabel: strings.ToUpper(metric),
			XLim:   cfg.Plot.XLim,
			YLim:   cfg.Plot.YLim,
			Width:  cfg.Plot.Width,
			Height: cfg.Plot.Height,
		}, path)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// printSummary writes one row per method and ratio with the mean of every
// metric
func printSummary(w io.Writer, s *benchmark.Summary, metricNames []string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := []string{"Method", "Ratio", "Achieved"}
	for _, m := range metricNames {
		header = append(header, strings.ToUpper(m))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, method := range s.Methods {
		for _, e := range s.Entries[method] {
			row := []string{method, fmt.Sprintf("%g", e.Requested), fmt.Sprintf("%.2f", e.Achieved)}
			for _, m := range metricNames {
				row = append(row, fmt.Sprintf("%.4f", e.Values[m]["mean"]))
			}
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
	}
	tw.Flush()
}

func saveReconstructions(cfg *config.Config, dir string) error {
	ds, err := openDataset(cfg)
	if err != nil {
		return err
	}
	sample, err := ds.At(0)
	if err != nil {
		return err
	}
	codecs, err := codec.NewAll(cfg.Methods, codecOptions(cfg))
	if err != nil {
		return err
	}

	viewer := visualization.NewViewer(sample.Image)
	for _, c := range codecs {
		for _, r := range cfg.Ratios {
			res, err := c.EncodeDecode(sample.Image, r)
			if err != nil {
				return errors.Wrapf(err, "%s at ratio %g", c.Name(), r)
			}
			err = viewer.Add(visualization.Frame{Method: c.Name(), Ratio: r, Achieved: res.AchievedRatio, Image: res.Image})
			if err != nil {
				return err
			}
		}
	}
	return viewer.SaveSequence(dir, true)
}

func preprocessSizes(cfg *config.Config) (preprocess.Size, []preprocess.Size) {
	orig := preprocess.Size{H: cfg.Preprocess.OriginalSize.H, W: cfg.Preprocess.OriginalSize.W}
	var sizes []preprocess.Size
	for _, p := range cfg.Preprocess.NewSize {
		sizes = append(sizes, preprocess.Size{H: p.H, W: p.W})
	}
	return orig, sizes
}

// runPreview passes the first n images through the classifier wrapper and
// saves what the classifier would see
func runPreview(cfg *config.Config, n int, logger *slog.Logger) error {
	domain, err := preprocess.ParseDomain(cfg.Preprocess.Domain)
	if err != nil {
		return err
	}
	orig, sizes := preprocessSizes(cfg)
	wrapper, err := preprocess.New(orig, sizes, domain, rand.New(rand.NewSource(cfg.Preprocess.Seed)))
	if err != nil {
		return err
	}
	ds, err := openDataset(cfg)
	if err != nil {
		return err
	}

	dir := filepath.Join(cfg.Output.Dir, cfg.Output.TaskName+"_preview")
	for i := 0; i < n && i < ds.Len(); i++ {
		sample, err := ds.At(i)
		if err != nil {
			return err
		}
		out, err := wrapper.Apply(sample.Image)
		if err != nil {
			return errors.Wrapf(err, "image %d", i)
		}
		fmt.Printf("Image %d: %v -> %v, real ratio %.3f\n", i, sample.Image.Shape(), out.Shape(), wrapper.RealRatio())

		if domain == preprocess.Compressed {
			out = normalise(out)
		}
		img, err := imageio.FromModel(out)
		if err != nil {
			logger.Warn("preview not rendered", "image", i, "error", err)
			continue
		}
		if err := imageio.Save(img, filepath.Join(dir, fmt.Sprintf("%03d.png", i))); err != nil {
			return err
		}
	}
	fmt.Printf("Preview saved to: %s\n", dir)
	return nil
}

// normalise maps coefficient magnitudes to [0,1] on a log scale per channel
func normalise(img *models.Image) *models.Image {
	out := models.NewImageFromShape(img.Shape())
	for c := 0; c < img.Channels; c++ {
		src, dst := img.Plane(c), out.Plane(c)
		peak := 0.0
		for i, v := range src {
			if v < 0 {
				v = -v
			}
			dst[i] = math.Log1p(v)
			if dst[i] > peak {
				peak = dst[i]
			}
		}
		if peak > 0 {
			for i := range dst {
				dst[i] /= peak
			}
		}
	}
	return out
}
