package benchmark

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"testing"

	"compressbench/internal/models"
	"compressbench/pkg/codec"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memDataset struct {
	images []*models.Image
	failAt int
}

func (d *memDataset) Len() int { return len(d.images) }

func (d *memDataset) At(i int) (models.Sample, error) {
	if d.failAt >= 0 && i == d.failAt {
		return models.Sample{}, errors.New("unreadable")
	}
	return models.Sample{Index: i, Image: d.images[i]}, nil
}

func gradientImages(n, size int) *memDataset {
	ds := &memDataset{failAt: -1}
	for k := 0; k < n; k++ {
		img := models.NewImage(1, size, size)
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				v := float64(x+y)/float64(2*size) + 0.1*math.Sin(float64(k*x+y))
				img.Set(0, y, x, math.Min(math.Max(v, 0), 1))
			}
		}
		ds.images = append(ds.images, img)
	}
	return ds
}

// failingCodec errors on one particular image
type failingCodec struct {
	codec.Codec
	target *models.Image
}

func (c failingCodec) Name() string { return "Failing" }

func (c failingCodec) EncodeDecode(img *models.Image, r float64) (*codec.Result, error) {
	if img == c.target {
		return nil, errors.New("boom")
	}
	return c.Codec.EncodeDecode(img, r)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRunner(t *testing.T, workers int, codecs ...codec.Codec) *Runner {
	t.Helper()
	if len(codecs) == 0 {
		var err error
		codecs, err = codec.NewAll([]string{"dct", "svd", "rescale"}, codec.Options{})
		require.NoError(t, err)
	}
	r, err := NewRunner(Options{
		Codecs:  codecs,
		Ratios:  []float64{1, 2, 4},
		Metrics: []string{"mse", "psnr"},
		Bitrate: true,
		Workers: workers,
		Logger:  quietLogger(),
	})
	require.NoError(t, err)
	return r
}

func TestRunRecordsEveryCombination(t *testing.T) {
	ds := gradientImages(3, 16)
	res, err := newRunner(t, 1).Run(ds)
	require.NoError(t, err)

	assert.True(t, res.Complete)
	assert.Equal(t, 3, res.ImageCount)
	assert.Equal(t, 3, res.ImageTotal)
	assert.Equal(t, []string{"DCT", "SVD", "Rescale"}, res.Methods)

	for _, method := range res.Methods {
		entries := res.Entries[method]
		require.Len(t, entries, 3)
		for i, e := range entries {
			assert.Equal(t, res.Ratios[i], e.Requested)
			assert.Len(t, e.AchievedPerImage, 3)
			assert.Len(t, e.Params, 3)
			assert.Len(t, e.BPP, 3)
			assert.Len(t, e.Values["mse"], 3)
			assert.Len(t, e.Values["psnr"], 3)
			assert.Equal(t, e.AchievedPerImage[2], e.Achieved)
		}
	}

	// DCT passes through at ratio 1
	dct := res.Entries["DCT"][0]
	for _, v := range dct.Values["mse"] {
		assert.Zero(t, v)
	}
	for _, v := range dct.Values["psnr"] {
		assert.True(t, math.IsInf(v, 1))
	}
}

func TestRunParallelMatchesSequential(t *testing.T) {
	ds := gradientImages(7, 16)
	seq, err := newRunner(t, 1).Run(ds)
	require.NoError(t, err)
	par, err := newRunner(t, 4).Run(ds)
	require.NoError(t, err)
	assert.Equal(t, seq, par)
}

func TestRunStopsOnCodecFailure(t *testing.T) {
	ds := gradientImages(4, 16)
	dct, err := codec.New("dct", codec.Options{})
	require.NoError(t, err)
	bad := failingCodec{Codec: dct, target: ds.images[2]}
	svd, err := codec.New("svd", codec.Options{})
	require.NoError(t, err)

	for _, workers := range []int{1, 3} {
		res, err := newRunner(t, workers, svd, bad).Run(ds)
		require.Error(t, err)

		var sweepErr *SweepError
		require.ErrorAs(t, err, &sweepErr)
		assert.Equal(t, 2, sweepErr.Image)
		assert.Equal(t, "Failing", sweepErr.Method)
		assert.Equal(t, 1.0, sweepErr.Ratio)

		assert.False(t, res.Complete)
		assert.Equal(t, 2, res.ImageCount, "workers=%d", workers)
		// the failing image left nothing behind, not even its SVD results
		assert.Len(t, res.Entries["SVD"][0].Values["mse"], 2)
		assert.Len(t, res.Entries["Failing"][0].Values["mse"], 2)
	}
}

func TestRunStopsOnLoadFailure(t *testing.T) {
	ds := gradientImages(3, 16)
	ds.failAt = 1
	res, err := newRunner(t, 1).Run(ds)

	var sweepErr *SweepError
	require.ErrorAs(t, err, &sweepErr)
	assert.Equal(t, 1, sweepErr.Image)
	assert.Empty(t, sweepErr.Method)
	assert.Equal(t, 1, res.ImageCount)
	assert.False(t, res.Complete)
}

func TestRunPropagatesPreconditionErrors(t *testing.T) {
	ds := gradientImages(1, 12)
	pdct, err := codec.New("patch_dct", codec.Options{})
	require.NoError(t, err)

	_, err = newRunner(t, 1, pdct).Run(ds)
	require.Error(t, err)
	var sweepErr *SweepError
	require.ErrorAs(t, err, &sweepErr)
	assert.Equal(t, "DCT Patches", sweepErr.Method)
}

func TestNewRunnerRejectsBadOptions(t *testing.T) {
	dct, err := codec.New("dct", codec.Options{})
	require.NoError(t, err)

	_, err = NewRunner(Options{Ratios: []float64{2}, Metrics: []string{"mse"}})
	assert.Error(t, err)
	_, err = NewRunner(Options{Codecs: []codec.Codec{dct}, Metrics: []string{"mse"}})
	assert.Error(t, err)
	_, err = NewRunner(Options{Codecs: []codec.Codec{dct}, Ratios: []float64{2}, Metrics: []string{"lpips"}})
	assert.Error(t, err)
	_, err = NewRunner(Options{Codecs: []codec.Codec{dct, dct}, Ratios: []float64{2}, Metrics: []string{"mse"}})
	assert.Error(t, err)
}

func TestAccumulatorRejectsPartialRecord(t *testing.T) {
	acc := NewAccumulator([]string{"A"}, []float64{2, 4}, []string{"mse"}, 1)
	err := acc.Commit(&ImageRecord{Reconstructions: []Reconstruction{
		{Method: "A", RatioIndex: 0, Values: map[string]float64{"mse": 1}},
	}})
	assert.Error(t, err)

	err = acc.Commit(&ImageRecord{Reconstructions: []Reconstruction{
		{Method: "A", RatioIndex: 0, Values: map[string]float64{"mse": 1}},
		{Method: "A", RatioIndex: 1, Values: map[string]float64{}},
	}})
	assert.Error(t, err)

	res := acc.Results()
	assert.Zero(t, res.ImageCount)
	assert.Empty(t, res.Entries["A"][0].Values["mse"])
}

func TestMetricSamples(t *testing.T) {
	rec := &ImageRecord{Reconstructions: []Reconstruction{
		{Method: "A", Requested: 2, Achieved: 2.5, Values: map[string]float64{"mse": 0.1, "psnr": 20}},
	}}
	samples := rec.MetricSamples([]string{"psnr", "mse"})
	require.Len(t, samples, 2)
	assert.Equal(t, models.MetricSample{Method: "A", RequestedRatio: 2, AchievedRatio: 2.5, Metric: "psnr", Value: 20}, samples[0])
	assert.Equal(t, "mse", samples[1].Metric)
}

func TestReducers(t *testing.T) {
	values := []float64{4, 1, 3, 2}
	assert.InDelta(t, 2.5, Mean(values), 1e-12)
	assert.InDelta(t, 2.5, Median(values), 1e-12)
	assert.InDelta(t, 3.0, Median([]float64{5, 3, 1}), 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), Std(values), 1e-12)
	assert.Zero(t, Std([]float64{7}))
	assert.Equal(t, 1.0, Min(values))
	assert.Equal(t, 4.0, Max(values))
	assert.Equal(t, []float64{4, 1, 3, 2}, values)

	for _, name := range ReducerNames() {
		f, err := LookupReducer(name)
		require.NoError(t, err)
		assert.True(t, math.IsNaN(f(nil)), name)
	}
	_, err := LookupReducer("mode")
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	res, err := newRunner(t, 1).Run(gradientImages(2, 16))
	require.NoError(t, err)

	s, err := Summarize(res, []string{"mean", "max"})
	require.NoError(t, err)
	assert.Equal(t, res.Methods, s.Methods)
	assert.Equal(t, 2, s.ImageCount)

	e := res.Entries["SVD"][2]
	se := s.Entries["SVD"][2]
	assert.Equal(t, e.Requested, se.Requested)
	assert.InDelta(t, (e.Values["mse"][0]+e.Values["mse"][1])/2, se.Values["mse"]["mean"], 1e-12)
	assert.Equal(t, math.Max(e.Values["mse"][0], e.Values["mse"][1]), se.Values["mse"]["max"])
	assert.Contains(t, se.BPP, "mean")

	_, err = Summarize(res, nil)
	assert.Error(t, err)
	_, err = Summarize(res, []string{"mode"})
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	res, err := newRunner(t, 1).Run(gradientImages(2, 16))
	require.NoError(t, err)
	s, err := Summarize(res, []string{"mean", "max"})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, SaveResults(res, ResultsPath(dir, "task")))
	require.NoError(t, SaveSummary(s, SummaryPath(dir, "task")))

	back, err := LoadResults(ResultsPath(dir, "task"))
	require.NoError(t, err)
	assert.Equal(t, res, back)

	sBack, err := LoadSummary(SummaryPath(dir, "task"))
	require.NoError(t, err)
	assert.Equal(t, s, sBack)
}

func TestLoadMissingResults(t *testing.T) {
	_, err := LoadResults(filepath.Join(t.TempDir(), "none_results.yaml"))
	assert.ErrorIs(t, err, ErrMissingResults)
	_, err = LoadSummary(filepath.Join(t.TempDir(), "none_summary.yaml"))
	assert.ErrorIs(t, err, ErrMissingResults)
}

func TestCurves(t *testing.T) {
	res, err := newRunner(t, 1).Run(gradientImages(2, 16))
	require.NoError(t, err)

	curves, err := Curves(res, "mse", AxisRatio)
	require.NoError(t, err)
	require.Len(t, curves, 3)
	assert.Equal(t, "DCT", curves[0].Method)
	require.Len(t, curves[0].Images, 2)
	require.Len(t, curves[0].Images[1], 3)

	e := res.Entries["DCT"][1]
	assert.Equal(t, models.Point{X: e.AchievedPerImage[1], Y: e.Values["mse"][1]}, curves[0].Images[1][1])

	bpp, err := Curves(res, "mse", AxisBPP)
	require.NoError(t, err)
	assert.Equal(t, e.BPP[1], bpp[0].Images[1][1].X)

	_, err = Curves(res, "ssim", AxisRatio)
	assert.Error(t, err)
	_, err = Curves(res, "mse", Axis("size"))
	assert.Error(t, err)
}
