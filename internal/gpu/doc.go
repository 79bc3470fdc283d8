// Package gpu abstracts the device that backs evaluation targets. It defines
// target shapes, pixel formats, blend factors and the Device interface, and
// ships a host-memory implementation. The ebiten-backed device lives in the
// ebitengpu subpackage so that packages which only need the engine core do
// not link a graphics driver.
package gpu
