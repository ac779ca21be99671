package layout

import (
	"image"
	"log/slog"
	"sort"

	"github.com/nvr-ai/go-blockseg/images"
	"github.com/nvr-ai/go-blockseg/models"
	"github.com/nvr-ai/go-blockseg/profiler"
	"github.com/pkg/errors"
)

// Config holds the resolver settings.
type Config struct {
	// Th is the Mask Refiner neighbourhood radius.
	Th int
	// MaxRefineIterations caps the Mask Refiner scans; <= 0 means unbounded.
	MaxRefineIterations int
	// MaxDilationRounds is the Polygon Extractor round budget.
	MaxDilationRounds int
	// Overwrite drops pre-existing regions instead of keeping them.
	Overwrite bool
	// Nudge is the paragraph margin correction used for reading order keys.
	Nudge MarginNudge
}

// DefaultConfig returns the block segmenter defaults.
func DefaultConfig() Config {
	return Config{
		Th:                  15,
		MaxRefineIterations: 10000,
		MaxDilationRounds:   images.DefaultMaxDilationRounds,
		Nudge:               DefaultMarginNudge,
	}
}

// Stats are per-page counters.
type Stats struct {
	Detections        int
	Emitted           int
	Dropped           int
	Refine            RefineStats
	Overlap           OverlapStats
	ResidualConflicts int
}

// Result is the resolved layout of one page.
type Result struct {
	PageID       string
	Rows, Cols   int
	Regions      []Region
	ReadingOrder OrderedGroup
	Diagnostics  []Diagnostic
	Stats        Stats
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithClassSet replaces the block segmentation class table.
func WithClassSet(set *models.OutputClassSet) Option {
	return func(r *Resolver) {
		r.classes = set
	}
}

// WithProfiler records phase timings and per-page counters in p.
func WithProfiler(p *profiler.Profiler) Option {
	return func(r *Resolver) {
		r.profiler = p
	}
}

// Resolver runs the four layout phases on a page. It holds no per-page state
// and is safe for concurrent use.
type Resolver struct {
	cfg      Config
	classes  *models.OutputClassSet
	logger   *slog.Logger
	profiler *profiler.Profiler
}

// NewResolver creates a resolver.
func NewResolver(cfg Config, opts ...Option) *Resolver {
	r := &Resolver{cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	if r.classes == nil {
		r.classes = models.BlockSegmentationClasses()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// candidate is a detection that survived validation, with its class name.
type candidate struct {
	det   *Detection
	class string
}

// survivor is a candidate whose polygon survived extraction.
type survivor struct {
	candidate
	polygon []image.Point
	order   int
}

// Resolve converts a page's detections into ordered, non-overlapping regions.
//
// An error is returned, and no result produced, when page is nil, when its
// raster size is not positive, or for a wrapped ErrInputContract (a nil
// detection or a class id outside the class table). Every per-region
// condition is logged, recorded in Result.Diagnostics and handled locally.
//
// Arguments:
//   - page: The page to resolve. Detection boxes are modified in place.
//
// Returns:
//   - *Result: The regions and reading-order group of the page.
//   - error: A wrapped ErrInputContract, or an error for a nil or empty page.
func (r *Resolver) Resolve(page *Page) (*Result, error) {
	if page == nil {
		return nil, errors.New("page is nil")
	}
	if page.Rows <= 0 || page.Cols <= 0 {
		return nil, errors.Errorf("page %q has invalid size %dx%d", page.ID, page.Cols, page.Rows)
	}
	log := r.logger.With("page", page.ID)

	res := &Result{PageID: page.ID, Rows: page.Rows, Cols: page.Cols}
	res.Stats.Detections = len(page.Detections)

	candidates, err := r.validate(page, res, log)
	if err != nil {
		return nil, err
	}
	dets := make([]*Detection, len(candidates))
	for i, c := range candidates {
		dets[i] = c.det
	}

	// Refine
	done := r.phase("refine")
	if aux := r.auxMask(page, res, log); aux != nil {
		res.Stats.Refine = RefineBoxes(dets, aux, r.cfg.Th, r.cfg.MaxRefineIterations)
		if res.Stats.Refine.Capped {
			log.Warn("mask refinement stopped at iteration cap",
				"iterations", res.Stats.Refine.Iterations,
				"unclaimed", res.Stats.Refine.Unclaimed,
			)
		}
	}
	done()

	// Resolve-Overlap
	done = r.phase("overlap")
	dropCapital, err := r.classes.GetIndex(models.ClassDropCapital)
	if err != nil {
		dropCapital = -1
	}
	res.Stats.Overlap = ResolveOverlaps(dets, dropCapital)
	done()

	// Build-Order
	done = r.phase("order")
	entries := make([]OrderEntry, len(candidates))
	for i, c := range candidates {
		entries[i] = OrderEntry{
			DetectionID: c.det.ID,
			Key:         KeyFor(c.det.Box, c.class, page.Cols, r.cfg.Nudge),
		}
	}
	order := BuildReadingOrder(entries)
	for _, group := range order.DuplicateKeys() {
		log.Warn("detections share a reading order key", "detections", group)
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			DetectionID: group[0],
			Err:         errors.Errorf("reading order key shared by detections %v", group),
		})
	}
	res.Stats.ResidualConflicts = ResidualConflicts(order)
	if res.Stats.ResidualConflicts > 0 {
		log.Debug("reading order has residual conflicts", "conflicts", res.Stats.ResidualConflicts)
	}
	done()

	// Extract + Assemble
	done = r.phase("extract")
	survivors := r.extract(page, candidates, order, res, log)
	done()
	done = r.phase("assemble")
	r.assemble(page, survivors, res, log)
	done()

	if r.profiler != nil {
		r.profiler.RecordMetric("regions", float64(res.Stats.Emitted))
		r.profiler.RecordMetric("dropped", float64(res.Stats.Dropped))
		r.profiler.RecordMetric("residual_conflicts", float64(res.Stats.ResidualConflicts))
	}

	log.Info("resolved page",
		"detections", res.Stats.Detections,
		"regions", res.Stats.Emitted,
		"dropped", res.Stats.Dropped,
	)
	return res, nil
}

// phase starts timing a phase; the returned func stops it.
func (r *Resolver) phase(name string) func() {
	if r.profiler == nil {
		return func() {}
	}
	return r.profiler.StartOperation(name)
}

// validate checks the input contract and drops background detections.
func (r *Resolver) validate(page *Page, res *Result, log *slog.Logger) ([]candidate, error) {
	candidates := make([]candidate, 0, len(page.Detections))
	for _, d := range page.Detections {
		if d == nil {
			return nil, errors.Wrap(ErrInputContract, "nil detection")
		}
		class, err := r.classes.GetName(d.ClassID)
		if err != nil {
			return nil, errors.WithStack(&ClassIDError{DetectionID: d.ID, ClassID: d.ClassID, TableSize: r.classes.Len()})
		}
		if class == models.ClassBackground {
			log.Debug("skipping background detection", "detection", d.ID)
			res.Stats.Dropped++
			continue
		}
		candidates = append(candidates, candidate{det: d, class: class})
	}
	return candidates, nil
}

// auxMask returns the auxiliary mask aligned to the page raster, or nil when
// there is none or it cannot be used.
func (r *Resolver) auxMask(page *Page, res *Result, log *slog.Logger) *images.Mask {
	if page.AuxMask == nil {
		return nil
	}
	if page.AuxMask.Rows == page.Rows && page.AuxMask.Cols == page.Cols {
		return page.AuxMask
	}
	aligned, err := images.ResizeMask(page.AuxMask, page.Rows, page.Cols)
	if err != nil {
		log.Warn("skipping box refinement", "error", err)
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			DetectionID: -1,
			Err:         errors.Wrap(ErrAuxMaskUnavailable, err.Error()),
		})
		return nil
	}
	log.Debug("resampled auxiliary mask",
		"from_rows", page.AuxMask.Rows, "from_cols", page.AuxMask.Cols,
		"rows", page.Rows, "cols", page.Cols,
	)
	return aligned
}

func (r *Resolver) extract(page *Page, candidates []candidate, order *ReadingOrder, res *Result, log *slog.Logger) []survivor {
	extractor := NewPolygonExtractor(r.cfg.MaxDilationRounds)
	defer extractor.Close()

	survivors := make([]survivor, 0, len(candidates))
	for _, c := range candidates {
		ex, err := extractor.Extract(c.det.Mask, page.Transform, page.Frame)
		if err != nil {
			if !errors.Is(err, ErrGeometryDegenerate) {
				err = errors.Wrap(ErrGeometryDegenerate, err.Error())
			}
			log.Warn("dropping region", "detection", c.det.ID, "class", c.class, "reason", err)
			res.Diagnostics = append(res.Diagnostics, Diagnostic{DetectionID: c.det.ID, Err: err})
			res.Stats.Dropped++
			continue
		}
		if !ex.Converged {
			log.Warn("region outline did not converge to a single contour",
				"detection", c.det.ID, "rounds", ex.Rounds, "kernel", ex.KernelSize)
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				DetectionID: c.det.ID,
				Err:         errors.Wrapf(ErrConvergenceExhausted, "%d rounds", ex.Rounds),
			})
		}
		if ex.Parts > 1 {
			log.Warn("region split by page frame, keeping largest part",
				"detection", c.det.ID, "parts", ex.Parts)
		}
		idx, _ := order.IndexOf(c.det.ID)
		survivors = append(survivors, survivor{candidate: c, polygon: ex.Polygon, order: idx})
	}
	return survivors
}

// assemble emits regions in detection order with compacted reading-order
// indices, so survivors always carry a permutation of 0..k-1.
func (r *Resolver) assemble(page *Page, survivors []survivor, res *Result, log *slog.Logger) {
	ranked := make([]int, len(survivors))
	for i := range ranked {
		ranked[i] = i
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return survivors[ranked[a]].order < survivors[ranked[b]].order
	})
	compact := make([]int, len(survivors))
	for rank, i := range ranked {
		compact[i] = rank
	}

	var kept []Region
	if len(page.Existing) > 0 {
		if r.cfg.Overwrite {
			log.Info("removing existing regions", "count", len(page.Existing))
		} else {
			log.Warn("keeping existing regions", "count", len(page.Existing))
			kept = page.Existing
		}
	}

	asm := NewAssembler(page.ID, kept)
	for i, s := range survivors {
		region := asm.Add(s.class, s.polygon, compact[i])
		log.Info("added region", "id", region.ID, "class", s.class, "reading_order", region.ReadingOrderIndex)
	}
	res.Regions, res.ReadingOrder = asm.Finalize()
	res.Stats.Emitted = len(survivors)
}
