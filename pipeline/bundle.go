package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/nvr-ai/go-blockseg/layout"
	"github.com/nvr-ai/go-blockseg/pagexml"
	"github.com/nvr-ai/go-blockseg/util"
)

// BundleJob resolves a page bundle directory and writes its regions file
// next to the inputs.
func BundleJob(dir string, minConfidence float32, logger *slog.Logger) Job {
	var imageFilename string
	return Job{
		Name: dir,
		Load: func(ctx context.Context) (*layout.Page, []layout.Diagnostic, error) {
			b, err := util.LoadPageBundle(ctx, dir, minConfidence, logger)
			if err != nil {
				return nil, nil, err
			}
			imageFilename = b.ImageFilename
			return b.Page, b.Diagnostics, nil
		},
		Store: func(_ context.Context, res *layout.Result) error {
			doc := pagexml.FromResult(res, imageFilename, time.Now())
			return pagexml.WriteFile(filepath.Join(dir, util.RegionsFile), doc)
		},
	}
}
