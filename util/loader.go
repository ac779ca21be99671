package util

import (
	"context"
	"encoding/json"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/nvr-ai/go-blockseg/detector"
	"github.com/nvr-ai/go-blockseg/images"
	"github.com/nvr-ai/go-blockseg/layout"
	"github.com/nvr-ai/go-blockseg/pagexml"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Page bundle file names.
const (
	PageImageFile  = "page.png"
	AuxMaskFile    = "nontext.png"
	FrameFile      = "frame.json"
	DetectionsFile = "detections.json"
	RegionsFile    = "regions.xml"
)

// auxThreshold separates dark non-text pixels from the white background.
const auxThreshold = 128

// Frame is the content of a frame file.
type Frame struct {
	// Points is the page frame polygon as [x, y] pairs, page-absolute.
	Points [][2]int `json:"points"`
	// Offset is the position of the page raster in page-absolute coordinates.
	Offset struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"offset"`
	// Scale maps raster pixels to page-absolute units; 0 means 1.
	Scale float64 `json:"scale,omitempty"`
}

// Bundle is a page read from a bundle directory.
type Bundle struct {
	// Dir is the bundle directory.
	Dir string
	// Page is ready to be resolved.
	Page *layout.Page
	// ImageFilename is the page image, relative to Dir.
	ImageFilename string
	// Diagnostics are conditions met while loading, such as an unusable
	// auxiliary mask.
	Diagnostics []layout.Diagnostic
}

// LoadPageBundle reads one page bundle.
//
// A bundle directory holds:
//   - page.png: the page raster, used for its dimensions.
//   - detections.json: the detector output, see detector.DetectionsFile, or
//     instead rois.npy, class_ids.npy, scores.npy and masks.npy: the raw
//     detection head tensors, see detector.DecodeTensors.
//   - nontext.png (optional): dark pixels mark non-text content that should
//     belong to some region.
//   - frame.json (optional): page frame polygon and raster offset.
//   - regions.xml (optional): regions already present on the page.
//
// Arguments:
//   - ctx: Passed to the detector.
//   - dir: The bundle directory. Its base name is the page id.
//   - minConfidence: Detection score threshold.
//   - logger: Receives loading diagnostics.
//
// Returns:
//   - *Bundle: The loaded page.
//   - error: An error if a required file is missing or unreadable.
func LoadPageBundle(ctx context.Context, dir string, minConfidence float32, logger *slog.Logger) (*Bundle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("bundle", dir)

	pagePath := filepath.Join(dir, PageImageFile)
	pageMat := gocv.IMRead(pagePath, gocv.IMReadGrayScale)
	defer pageMat.Close()
	if pageMat.Empty() {
		return nil, errors.Errorf("cannot read page image %s", pagePath)
	}

	b := &Bundle{
		Dir:           dir,
		ImageFilename: PageImageFile,
		Page: &layout.Page{
			ID:   filepath.Base(dir),
			Rows: pageMat.Rows(),
			Cols: pageMat.Cols(),
		},
	}

	dets, err := bundleDetector(dir, minConfidence).Detect(ctx, pageMat)
	if err != nil {
		return nil, err
	}
	b.Page.Detections = dets

	b.Page.AuxMask = loadAuxMask(filepath.Join(dir, AuxMaskFile), b, log)

	if err := loadFrame(filepath.Join(dir, FrameFile), b.Page); err != nil {
		return nil, err
	}

	existing, err := loadExisting(filepath.Join(dir, RegionsFile))
	if err != nil {
		return nil, err
	}
	b.Page.Existing = existing

	log.Debug("loaded page bundle",
		"rows", b.Page.Rows,
		"cols", b.Page.Cols,
		"detections", len(dets),
		"aux_mask", b.Page.AuxMask != nil,
		"frame", b.Page.Frame != nil,
		"existing", len(existing),
	)
	return b, nil
}

// bundleDetector prefers the detections file and falls back to tensor dumps.
func bundleDetector(dir string, minConfidence float32) detector.Detector {
	if fileExists(filepath.Join(dir, DetectionsFile)) {
		return detector.NewFileDetector(filepath.Join(dir, DetectionsFile), minConfidence)
	}
	return detector.NewTensorDetector(dir, minConfidence)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func loadAuxMask(path string, b *Bundle, log *slog.Logger) *images.Mask {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Debug("no auxiliary mask")
		return nil
	}

	mat := gocv.IMRead(path, gocv.IMReadGrayScale)
	defer mat.Close()
	mask, err := images.MaskFromMat(mat, auxThreshold, true)
	if err != nil {
		err = errors.Wrapf(layout.ErrAuxMaskUnavailable, "%s: %v", path, err)
		log.Warn("auxiliary mask unavailable", "error", err)
		b.Diagnostics = append(b.Diagnostics, layout.Diagnostic{DetectionID: -1, Err: err})
		return nil
	}
	return mask
}

func loadFrame(path string, page *layout.Page) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}

	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return errors.Wrapf(err, "parsing %s", path)
	}
	if len(f.Points) > 0 {
		if len(f.Points) < 3 {
			return errors.Errorf("%s: page frame needs at least 3 points, got %d", path, len(f.Points))
		}
		page.Frame = make([]image.Point, len(f.Points))
		for i, p := range f.Points {
			page.Frame[i] = image.Point{X: p[0], Y: p[1]}
		}
	}
	page.Transform = images.Transform{
		OffsetX: f.Offset.X,
		OffsetY: f.Offset.Y,
		ScaleX:  f.Scale,
		ScaleY:  f.Scale,
	}
	return nil
}

func loadExisting(path string) ([]layout.Region, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	doc, err := pagexml.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return doc.LayoutRegions()
}

// FindBundles returns the bundle directories under roots, sorted. A root is
// itself a bundle when it holds a detections file or a rois tensor dump;
// otherwise its immediate subdirectories that hold one are returned.
//
// Arguments:
//   - roots: Bundle directories or directories of bundles.
//
// Returns:
//   - []string: Bundle directories without duplicates.
//   - error: An error if a root cannot be read.
func FindBundles(roots ...string) ([]string, error) {
	seen := make(map[string]struct{})
	var bundles []string
	add := func(dir string) {
		dir = filepath.Clean(dir)
		if _, ok := seen[dir]; !ok {
			seen[dir] = struct{}{}
			bundles = append(bundles, dir)
		}
	}

	for _, root := range roots {
		if isBundle(root) {
			add(root)
			continue
		}
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", root)
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			if dir := filepath.Join(root, e.Name()); isBundle(dir) {
				add(dir)
			}
		}
	}

	sort.Strings(bundles)
	return bundles, nil
}

func isBundle(dir string) bool {
	return fileExists(filepath.Join(dir, DetectionsFile)) || fileExists(filepath.Join(dir, detector.RoisFile))
}
