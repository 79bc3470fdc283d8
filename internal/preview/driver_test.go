package preview

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/evalgraph/internal/evaluator"
	"github.com/vk/evalgraph/internal/testutil"
)

type fakeStepper struct {
	reports []evaluator.PassReport
	passErr error
	img     *image.RGBA
	reads   int
}

func (f *fakeStepper) Pass(context.Context) (evaluator.PassReport, error) {
	if f.passErr != nil {
		return evaluator.PassReport{}, f.passErr
	}
	r := f.reports[0]
	if len(f.reports) > 1 {
		f.reports = f.reports[1:]
	}
	return r, nil
}

func (f *fakeStepper) Evaluate(context.Context, int, int, int) (*image.RGBA, error) {
	f.reads++
	if f.img == nil {
		return nil, errors.New("no target")
	}
	return f.img, nil
}

func TestDriver_Step(t *testing.T) {
	s := &fakeStepper{reports: []evaluator.PassReport{
		{Pass: 0, Kernels: 1},
		{Pass: 1, Kernels: 1},
		{Pass: 2},
		{Pass: 3, Completions: 1},
	}}
	d := NewDriver(s, 0)
	ctx := context.Background()

	changed, err := d.Step(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "no image yet")
	assert.Nil(t, d.Frame())

	s.img = testutil.Solid(2, 2, color.RGBA{R: 255, A: 255})
	changed, err = d.Step(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, d.Version())

	changed, err = d.Step(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "idle pass keeps the frame")
	assert.Equal(t, 2, s.reads)

	changed, err = d.Step(ctx)
	require.NoError(t, err)
	assert.True(t, changed, "a completion refreshes the frame")
	assert.Equal(t, 3, d.Report().Pass)
	assert.Equal(t, "pass 3  kernels 0  processing 0  errors 0", d.Status())
}

func TestDriver_PassError(t *testing.T) {
	boom := errors.New("cycle")
	d := NewDriver(&fakeStepper{passErr: boom}, 0)
	_, err := d.Step(context.Background())
	require.ErrorIs(t, err, boom)
}
