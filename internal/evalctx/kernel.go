package evalctx

import (
	"fmt"

	"github.com/vk/evalgraph/internal/gpu"
)

// Source resolves the node feeding slot of e, honoring input overrides.
func (c *Context) Source(e *Evaluation, slot int) int {
	if src, ok := c.table.Override(e.Target, slot); ok {
		return src
	}
	return e.Input(slot)
}

// Composite is the kernel shared by kinds without their own: it draws the
// first input into the target with the target's render state, restricted
// to region of the source. Targets without an allocation, or backed by a
// scene or renderer, are left alone.
func (c *Context) Composite(e *Evaluation, region gpu.Region) error {
	state, ok := c.table.Snapshot(e.Target)
	if !ok {
		return fmt.Errorf("target %d: not found", e.Target)
	}
	dst := c.table.Texture(e.Target)
	if dst == nil || state.HasRenderer || state.SceneName != "" {
		return nil
	}
	device := c.table.Device()
	if state.FrameClear {
		if err := device.Clear(dst); err != nil {
			return fmt.Errorf("target %d: clear: %w", e.Target, err)
		}
	}

	src := c.table.Texture(c.Source(e, 0))
	if src == nil {
		return nil
	}
	err := device.Draw(dst, src, gpu.DrawState{
		Blend:       state.Blend,
		DepthBuffer: state.DepthBuffer,
		FrameClear:  state.FrameClear,
		VertexSpace: state.VertexSpace,
		Region:      region,
	})
	if err != nil {
		return fmt.Errorf("target %d: draw: %w", e.Target, err)
	}
	return nil
}
