// Package dataset reads benchmark images from a directory.
//
// The root either holds image files directly, or one subdirectory per label
// with the images of that label inside. Files are ordered by label, then by
// the number embedded in the file name, then by name, so that repeated runs
// see the images in the same order.
package dataset

import (
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"compressbench/internal/models"
	"compressbench/pkg/imageio"

	"github.com/disintegration/gift"
	"github.com/pkg/errors"
)

// ErrEmpty is returned when the root contains no readable image
var ErrEmpty = errors.New("no images found")

// Options controls how images are loaded
type Options struct {
	// Width and Height resize every image on load; zero keeps the original size
	Width, Height int

	// Limit caps the number of images; zero means all
	Limit int

	// Grayscale loads a single luminance channel
	Grayscale bool
}

type entry struct {
	path  string
	label string
}

// Dir is a restartable dataset backed by a directory. Images are decoded
// lazily on every access.
type Dir struct {
	root    string
	opts    Options
	entries []entry
	filter  *gift.GIFT
}

// Open scans root and returns the dataset
func Open(root string, opts Options) (*Dir, error) {
	if (opts.Width == 0) != (opts.Height == 0) || opts.Width < 0 || opts.Height < 0 {
		return nil, errors.Errorf("invalid resize %dx%d", opts.Width, opts.Height)
	}
	if opts.Limit < 0 {
		return nil, errors.Errorf("invalid limit %d", opts.Limit)
	}

	files, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrap(err, "reading dataset directory")
	}

	var entries []entry
	for _, file := range files {
		if file.IsDir() {
			sub, err := scan(filepath.Join(root, file.Name()), file.Name())
			if err != nil {
				return nil, err
			}
			entries = append(entries, sub...)
			continue
		}
		if imageio.Supported(file.Name()) {
			entries = append(entries, entry{path: filepath.Join(root, file.Name())})
		}
	}
	if len(entries) == 0 {
		return nil, errors.Wrap(ErrEmpty, root)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.label != b.label {
			return a.label < b.label
		}
		na, nb := extractNumber(a.path), extractNumber(b.path)
		if na != nb {
			return na < nb
		}
		return a.path < b.path
	})
	if opts.Limit > 0 && opts.Limit < len(entries) {
		entries = entries[:opts.Limit]
	}

	d := &Dir{root: root, opts: opts, entries: entries}
	var filters []gift.Filter
	if opts.Width > 0 {
		filters = append(filters, gift.Resize(opts.Width, opts.Height, gift.LinearResampling))
	}
	if opts.Grayscale {
		filters = append(filters, gift.Grayscale())
	}
	if len(filters) > 0 {
		d.filter = gift.New(filters...)
	}
	return d, nil
}

func scan(dir, label string) ([]entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading label directory %s", label)
	}
	var out []entry
	for _, file := range files {
		if !file.IsDir() && imageio.Supported(file.Name()) {
			out = append(out, entry{path: filepath.Join(dir, file.Name()), label: label})
		}
	}
	return out, nil
}

// extractNumber returns the digits of the file name as a number, or zero
func extractNumber(path string) int {
	base := filepath.Base(path)
	digits := make([]byte, 0, len(base))
	for i := 0; i < len(base); i++ {
		if base[i] >= '0' && base[i] <= '9' {
			digits = append(digits, base[i])
		}
	}
	n, err := strconv.Atoi(string(digits))
	if err != nil {
		return 0
	}
	return n
}

// Len returns the number of images
func (d *Dir) Len() int { return len(d.entries) }

// Path returns the file backing image i
func (d *Dir) Path(i int) string { return d.entries[i].path }

// Labels returns the distinct labels in order; flat datasets have none
func (d *Dir) Labels() []string {
	var labels []string
	for _, e := range d.entries {
		if e.label != "" && (len(labels) == 0 || labels[len(labels)-1] != e.label) {
			labels = append(labels, e.label)
		}
	}
	return labels
}

// At decodes image i
func (d *Dir) At(i int) (models.Sample, error) {
	if i < 0 || i >= len(d.entries) {
		return models.Sample{}, errors.Errorf("index %d out of range [0, %d)", i, len(d.entries))
	}
	e := d.entries[i]
	img, err := imageio.Load(e.path)
	if err != nil {
		return models.Sample{}, err
	}
	if d.filter != nil {
		dst := image.NewNRGBA64(d.filter.Bounds(img.Bounds()))
		d.filter.Draw(dst, img)
		img = dst
	}
	return models.Sample{
		Index: i,
		Image: imageio.ToModel(img, d.opts.Grayscale),
		Label: e.label,
	}, nil
}
