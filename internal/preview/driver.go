package preview

import (
	"context"
	"fmt"
	"image"

	"github.com/vk/evalgraph/internal/evaluator"
)

// Stepper runs passes and reads targets back.
type Stepper interface {
	Pass(ctx context.Context) (evaluator.PassReport, error)
	Evaluate(ctx context.Context, i, width, height int) (*image.RGBA, error)
}

// Driver advances a Stepper one pass at a time and keeps the latest image
// of the previewed node.
type Driver struct {
	stepper Stepper
	node    int
	report  evaluator.PassReport
	frame   *image.RGBA
	// version counts frame refreshes.
	version int
}

// NewDriver previews node.
func NewDriver(s Stepper, node int) *Driver {
	return &Driver{stepper: s, node: node}
}

// Step runs one pass and refreshes the frame when anything was rendered or
// installed. It reports whether the frame changed. A node without a target
// yet is not an error.
func (d *Driver) Step(ctx context.Context) (bool, error) {
	report, err := d.stepper.Pass(ctx)
	if err != nil {
		return false, err
	}
	d.report = report
	if d.frame != nil && report.Kernels == 0 && report.Completions == 0 {
		return false, nil
	}
	img, err := d.stepper.Evaluate(ctx, d.node, 0, 0)
	if err != nil {
		return false, nil
	}
	d.frame = img
	d.version++
	return true, nil
}

// Frame is the latest image, nil before the node first rendered.
func (d *Driver) Frame() *image.RGBA { return d.frame }

// Version increases every time Frame changes.
func (d *Driver) Version() int { return d.version }

// Report is the report of the last pass.
func (d *Driver) Report() evaluator.PassReport { return d.report }

// Status is a one-line summary for the window overlay.
func (d *Driver) Status() string {
	r := d.report
	return fmt.Sprintf("pass %d  kernels %d  processing %d  errors %d", r.Pass, r.Kernels, r.Processing, r.Errors)
}
