package evaluator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/vk/evalgraph/internal/dirty"
	"github.com/vk/evalgraph/internal/gpu"
	xdraw "golang.org/x/image/draw"
)

// ErrNotSettled is returned when RunUntilSettled runs out of passes.
var ErrNotSettled = errors.New("graph did not settle")

// jobPoll is how long RunUntilSettled waits when only background jobs
// remain.
const jobPoll = time.Millisecond

// RunUntilSettled runs passes until nothing is dirty, processing or in
// flight, or maxPasses passes ran. Time spent waiting on background jobs
// does not count as a pass.
func (e *Evaluator) RunUntilSettled(ctx context.Context, maxPasses int) ([]PassReport, error) {
	var reports []PassReport
	for len(reports) < maxPasses {
		if e.Settled() {
			return reports, nil
		}
		if e.waitingOnJobs() {
			select {
			case <-ctx.Done():
				return reports, ctx.Err()
			case <-time.After(jobPoll):
			}
			continue
		}
		r, err := e.Pass(ctx)
		if err != nil {
			return reports, err
		}
		reports = append(reports, r)
	}
	if e.Settled() {
		return reports, nil
	}
	return reports, fmt.Errorf("after %d passes: %w", maxPasses, ErrNotSettled)
}

// waitingOnJobs reports whether a pass now would only find nodes waiting
// for jobs that have not finished. Queued tasks are restarted on every poll.
func (e *Evaluator) waitingOnJobs() bool {
	if e.jobs.Queued() > 0 {
		e.jobs.Resume()
	}
	if e.jobs.Pending() == 0 || e.jobs.Ready() > 0 || e.jobs.Tracked() > 0 {
		return false
	}
	for _, i := range e.tracker.Busy() {
		if !e.jobs.InFlight(i) {
			return false
		}
	}
	return e.onlyBusyDirty()
}

// onlyBusyDirty reports whether every dirty node is processing or failed.
func (e *Evaluator) onlyBusyDirty() bool {
	for _, n := range e.graph.Nodes() {
		s, ok := e.tracker.Get(n.Index)
		if !ok {
			continue
		}
		if (s.Flags.Any() || e.tracker.Pending(n.Index).Any()) && s.Processing == dirty.Idle && !s.Failed {
			return false
		}
	}
	return true
}

// Evaluate reads target i back and resamples it to width by height. A
// non-positive size keeps the native resolution. It is called from
// callbacks, after the target's own turn in the current pass.
func (e *Evaluator) Evaluate(ctx context.Context, i, width, height int) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shape := e.table.Shape(i)
	if shape.IsZero() {
		return nil, fmt.Errorf("target %d has no declared shape", i)
	}
	src, err := e.table.Download(i, gpu.FacePosX)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return src, nil
	}
	if src.Bounds().Dx() == width && src.Bounds().Dy() == height {
		return src, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}
