package testutil

import (
	"context"
	"image"
	"sync"

	"github.com/vk/evalgraph/internal/resource"
	xdraw "golang.org/x/image/draw"
)

// EvaluateCall is one request seen by a Readback.
type EvaluateCall struct {
	Target, Width, Height int
}

// Readback answers Evaluate by downloading the target and scaling it with
// nearest-neighbor sampling. It stands in for the evaluator in module tests.
type Readback struct {
	table *resource.Table
	mu    sync.Mutex
	calls []EvaluateCall
}

// Evaluate implements evalctx.Evaluator.
func (r *Readback) Evaluate(ctx context.Context, i, width, height int) (*image.RGBA, error) {
	r.mu.Lock()
	r.calls = append(r.calls, EvaluateCall{Target: i, Width: width, Height: height})
	r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := r.table.Download(i, 0)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return src, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// Calls returns every request in order.
func (r *Readback) Calls() []EvaluateCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]EvaluateCall(nil), r.calls...)
}

// BindReadback attaches a Readback to the session of e.
func (e *Env) BindReadback() *Readback {
	r := &Readback{table: e.Table}
	e.Context.Bind(r)
	return r
}
