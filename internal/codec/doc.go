// Package codec holds the file collaborators of the evaluation engine:
// image decoding and encoding, a glTF mesh reader, an SVG rasterizer and
// thumbnail sinks. Each is exposed behind a small interface so node
// callbacks and tests can swap them.
package codec
