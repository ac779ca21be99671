package detector

import (
	"github.com/nvr-ai/go-blockseg/images"
	"github.com/nvr-ai/go-blockseg/layout"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// maskThreshold is the cut-off for soft (probability) masks.
const maskThreshold = 0.5

// DecodeTensors converts the raw outputs of a Mask R-CNN detection head into
// detections.
//
// Expected shapes, with N the number of detections and H x W the page raster:
//
//	rois      [N, 4]   (min_row, min_col, max_row, max_col)
//	class_ids [N]
//	scores    [N]
//	masks     [H, W, N]   bool, or numeric with foreground >= 0.5
//
// Numeric tensors may use any of the int or float dtypes. Detection IDs are
// the positions along N.
//
// Arguments:
//   - rois: Bounding boxes.
//   - classIDs: Class table indices.
//   - scores: Detection confidences.
//   - masks: Per-detection full-page masks.
//
// Returns:
//   - []*layout.Detection: One detection per roi.
//   - error: An error if the shapes disagree or a value has an unsupported dtype.
func DecodeTensors(rois, classIDs, scores, masks tensor.Tensor) ([]*layout.Detection, error) {
	rs, cs, ss, ms := rois.Shape(), classIDs.Shape(), scores.Shape(), masks.Shape()
	if len(rs) != 2 || rs[1] != 4 {
		return nil, errors.Errorf("rois must have shape [N 4], got %v", rs)
	}
	n := rs[0]
	if len(cs) != 1 || cs[0] != n {
		return nil, errors.Errorf("class_ids must have shape [%d], got %v", n, cs)
	}
	if len(ss) != 1 || ss[0] != n {
		return nil, errors.Errorf("scores must have shape [%d], got %v", n, ss)
	}
	if len(ms) != 3 || ms[2] != n {
		return nil, errors.Errorf("masks must have shape [H W %d], got %v", n, ms)
	}
	rows, cols := ms[0], ms[1]

	dets := make([]*layout.Detection, n)
	for i := 0; i < n; i++ {
		var box [4]int
		for k := range box {
			v, err := numberAt(rois, i, k)
			if err != nil {
				return nil, errors.Wrapf(err, "roi %d", i)
			}
			box[k] = int(v)
		}
		class, err := numberAt(classIDs, i)
		if err != nil {
			return nil, errors.Wrapf(err, "class id %d", i)
		}
		score, err := numberAt(scores, i)
		if err != nil {
			return nil, errors.Wrapf(err, "score %d", i)
		}

		mask := images.NewMask(rows, cols)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				fg, err := foregroundAt(masks, r, c, i)
				if err != nil {
					return nil, errors.Wrapf(err, "mask %d", i)
				}
				if fg {
					mask.Pix[r*cols+c] = 1
				}
			}
		}

		dets[i] = &layout.Detection{
			ID:      i,
			Box:     images.NewBox(box[0], box[1], box[2], box[3]),
			ClassID: int(class),
			Mask:    mask,
			Score:   float32(score),
		}
	}
	return dets, nil
}

func foregroundAt(t tensor.Tensor, coords ...int) (bool, error) {
	v, err := t.At(coords...)
	if err != nil {
		return false, err
	}
	if b, ok := v.(bool); ok {
		return b, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return false, err
	}
	return f >= maskThreshold, nil
}

func numberAt(t tensor.Tensor, coords ...int) (float64, error) {
	v, err := t.At(coords...)
	if err != nil {
		return 0, err
	}
	return toFloat(v)
}

func toFloat(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	default:
		return 0, errors.Errorf("unsupported tensor value %T", v)
	}
}
