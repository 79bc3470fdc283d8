package codec

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/image/vector"
)

// SVGLoader rasterizes vector images.
type SVGLoader interface {
	LoadSVG(ctx context.Context, path string, dpi float64) (image.Image, error)
}

// SVG rasterizes a subset of SVG: rect, circle, ellipse, polygon and path
// elements with solid fills, inside nested groups.
type SVG struct{}

// NewSVG creates an SVG rasterizer.
func NewSVG() *SVG {
	return &SVG{}
}

// cssDPI is the resolution SVG user units are defined at.
const cssDPI = 96.0

// LoadSVG reads path and rasterizes it at dpi.
func (s *SVG) LoadSVG(ctx context.Context, path string, dpi float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open svg: %w", err)
	}
	defer f.Close()
	img, err := s.Rasterize(f, dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize %q: %w", path, err)
	}
	return img, nil
}

type svgShape struct {
	fill  color.Color
	build func(z *vector.Rasterizer, sx, sy float32)
}

// Rasterize renders the document read from r.
func (s *SVG) Rasterize(r io.Reader, dpi float64) (*image.RGBA, error) {
	if dpi <= 1 {
		dpi = cssDPI
	}
	dec := xml.NewDecoder(r)

	var (
		width, height float64
		viewBox       []float64
		shapes        []svgShape
		fills         = []color.Color{color.Black}
		seenRoot      bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid svg: %w", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			attrs := attrMap(el.Attr)
			fill := fills[len(fills)-1]
			if v, ok := attrs["fill"]; ok {
				c, err := parseColor(v)
				if err != nil {
					return nil, err
				}
				fill = c
			}
			switch el.Name.Local {
			case "svg":
				seenRoot = true
				width, _ = parseLength(attrs["width"])
				height, _ = parseLength(attrs["height"])
				if vb := attrs["viewBox"]; vb != "" {
					viewBox, err = parseNumbers(vb)
					if err != nil || len(viewBox) != 4 {
						return nil, fmt.Errorf("invalid viewBox %q", vb)
					}
				}
				fills = append(fills, fill)
			case "g":
				fills = append(fills, fill)
			case "rect", "circle", "ellipse", "polygon", "path":
				if !seenRoot {
					return nil, errors.New("shape outside of <svg> root")
				}
				build, err := shapeBuilder(el.Name.Local, attrs)
				if err != nil {
					return nil, err
				}
				if fill != nil {
					shapes = append(shapes, svgShape{fill: fill, build: build})
				}
			}
		case xml.EndElement:
			if (el.Name.Local == "g" || el.Name.Local == "svg") && len(fills) > 1 {
				fills = fills[:len(fills)-1]
			}
		}
	}
	if !seenRoot {
		return nil, errors.New("missing <svg> root element")
	}

	if width == 0 && len(viewBox) == 4 {
		width = viewBox[2]
	}
	if height == 0 && len(viewBox) == 4 {
		height = viewBox[3]
	}
	if width <= 0 || height <= 0 {
		return nil, errors.New("svg has no size")
	}
	scale := dpi / cssDPI
	pw := int(math.Ceil(width * scale))
	ph := int(math.Ceil(height * scale))

	sx, sy := float32(scale), float32(scale)
	if len(viewBox) == 4 && viewBox[2] > 0 && viewBox[3] > 0 {
		sx = float32(float64(pw) / viewBox[2])
		sy = float32(float64(ph) / viewBox[3])
	}

	dst := image.NewRGBA(image.Rect(0, 0, pw, ph))
	for _, sh := range shapes {
		z := vector.NewRasterizer(pw, ph)
		sh.build(z, sx, sy)
		z.Draw(dst, dst.Bounds(), image.NewUniform(sh.fill), image.Point{})
	}
	return dst, nil
}

func attrMap(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name.Local] = a.Value
	}
	if style, ok := m["style"]; ok {
		for _, decl := range strings.Split(style, ";") {
			k, v, ok := strings.Cut(decl, ":")
			if ok {
				m[strings.TrimSpace(k)] = strings.TrimSpace(v)
			}
		}
	}
	return m
}

func shapeBuilder(kind string, a map[string]string) (func(*vector.Rasterizer, float32, float32), error) {
	num := func(k string) float32 {
		v, _ := parseLength(a[k])
		return float32(v)
	}
	switch kind {
	case "rect":
		x, y, w, h := num("x"), num("y"), num("width"), num("height")
		return func(z *vector.Rasterizer, sx, sy float32) {
			z.MoveTo(x*sx, y*sy)
			z.LineTo((x+w)*sx, y*sy)
			z.LineTo((x+w)*sx, (y+h)*sy)
			z.LineTo(x*sx, (y+h)*sy)
			z.ClosePath()
		}, nil
	case "circle":
		r := num("r")
		return ellipse(num("cx"), num("cy"), r, r), nil
	case "ellipse":
		return ellipse(num("cx"), num("cy"), num("rx"), num("ry")), nil
	case "polygon":
		pts, err := parseNumbers(a["points"])
		if err != nil || len(pts) < 6 || len(pts)%2 != 0 {
			return nil, fmt.Errorf("invalid polygon points %q", a["points"])
		}
		return func(z *vector.Rasterizer, sx, sy float32) {
			z.MoveTo(float32(pts[0])*sx, float32(pts[1])*sy)
			for i := 2; i < len(pts); i += 2 {
				z.LineTo(float32(pts[i])*sx, float32(pts[i+1])*sy)
			}
			z.ClosePath()
		}, nil
	case "path":
		cmds, err := parsePath(a["d"])
		if err != nil {
			return nil, err
		}
		return func(z *vector.Rasterizer, sx, sy float32) {
			for _, c := range cmds {
				c(z, sx, sy)
			}
		}, nil
	}
	return nil, fmt.Errorf("unsupported element %q", kind)
}

// ellipse approximates an ellipse with four cubic segments.
func ellipse(cx, cy, rx, ry float32) func(*vector.Rasterizer, float32, float32) {
	const k = 0.5522848
	return func(z *vector.Rasterizer, sx, sy float32) {
		p := func(x, y float32) (float32, float32) { return x * sx, y * sy }
		z.MoveTo(p(cx+rx, cy))
		x1, y1 := p(cx+rx, cy+k*ry)
		x2, y2 := p(cx+k*rx, cy+ry)
		x3, y3 := p(cx, cy+ry)
		z.CubeTo(x1, y1, x2, y2, x3, y3)
		x1, y1 = p(cx-k*rx, cy+ry)
		x2, y2 = p(cx-rx, cy+k*ry)
		x3, y3 = p(cx-rx, cy)
		z.CubeTo(x1, y1, x2, y2, x3, y3)
		x1, y1 = p(cx-rx, cy-k*ry)
		x2, y2 = p(cx-k*rx, cy-ry)
		x3, y3 = p(cx, cy-ry)
		z.CubeTo(x1, y1, x2, y2, x3, y3)
		x1, y1 = p(cx+k*rx, cy-ry)
		x2, y2 = p(cx+rx, cy-k*ry)
		x3, y3 = p(cx+rx, cy)
		z.CubeTo(x1, y1, x2, y2, x3, y3)
		z.ClosePath()
	}
}

type pathCmd func(z *vector.Rasterizer, sx, sy float32)

// parsePath supports the M, L, H, V, C, Q and Z commands, absolute and relative.
func parsePath(d string) ([]pathCmd, error) {
	toks := tokenizePath(d)
	var (
		cmds           []pathCmd
		cx, cy         float64
		startX, startY float64
		op             byte
		i              int
	)
	next := func(n int) ([]float64, error) {
		if i+n > len(toks) {
			return nil, fmt.Errorf("path %q: missing coordinates", d)
		}
		out := make([]float64, n)
		for k := 0; k < n; k++ {
			v, err := strconv.ParseFloat(toks[i+k], 64)
			if err != nil {
				return nil, fmt.Errorf("path %q: %w", d, err)
			}
			out[k] = v
		}
		i += n
		return out, nil
	}

	for i < len(toks) {
		if t := toks[i]; len(t) == 1 && strings.ContainsAny(t, "MmLlHhVvCcQqZz") {
			op = t[0]
			i++
			if op == 'Z' || op == 'z' {
				cmds = append(cmds, func(z *vector.Rasterizer, _, _ float32) { z.ClosePath() })
				cx, cy = startX, startY
				continue
			}
		} else if op == 0 {
			return nil, fmt.Errorf("path %q: expected command", d)
		}

		rel := op >= 'a'
		ox, oy := 0.0, 0.0
		if rel {
			ox, oy = cx, cy
		}
		switch op | 0x20 {
		case 'm', 'l':
			v, err := next(2)
			if err != nil {
				return nil, err
			}
			x, y := v[0]+ox, v[1]+oy
			if op|0x20 == 'm' {
				cmds = append(cmds, moveCmd(x, y))
				startX, startY = x, y
				// Subsequent pairs after a move are implicit line-tos.
				if rel {
					op = 'l'
				} else {
					op = 'L'
				}
			} else {
				cmds = append(cmds, lineCmd(x, y))
			}
			cx, cy = x, y
		case 'h':
			v, err := next(1)
			if err != nil {
				return nil, err
			}
			cx = v[0] + ox
			cmds = append(cmds, lineCmd(cx, cy))
		case 'v':
			v, err := next(1)
			if err != nil {
				return nil, err
			}
			cy = v[0] + oy
			cmds = append(cmds, lineCmd(cx, cy))
		case 'q':
			v, err := next(4)
			if err != nil {
				return nil, err
			}
			x1, y1, x, y := v[0]+ox, v[1]+oy, v[2]+ox, v[3]+oy
			cmds = append(cmds, func(z *vector.Rasterizer, sx, sy float32) {
				z.QuadTo(float32(x1)*sx, float32(y1)*sy, float32(x)*sx, float32(y)*sy)
			})
			cx, cy = x, y
		case 'c':
			v, err := next(6)
			if err != nil {
				return nil, err
			}
			x1, y1, x2, y2, x, y := v[0]+ox, v[1]+oy, v[2]+ox, v[3]+oy, v[4]+ox, v[5]+oy
			cmds = append(cmds, func(z *vector.Rasterizer, sx, sy float32) {
				z.CubeTo(float32(x1)*sx, float32(y1)*sy, float32(x2)*sx, float32(y2)*sy, float32(x)*sx, float32(y)*sy)
			})
			cx, cy = x, y
		default:
			return nil, fmt.Errorf("path %q: unsupported command %q", d, op)
		}
	}
	return cmds, nil
}

func moveCmd(x, y float64) pathCmd {
	return func(z *vector.Rasterizer, sx, sy float32) { z.MoveTo(float32(x)*sx, float32(y)*sy) }
}

func lineCmd(x, y float64) pathCmd {
	return func(z *vector.Rasterizer, sx, sy float32) { z.LineTo(float32(x)*sx, float32(y)*sy) }
}

func tokenizePath(d string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(d); i++ {
		c := d[i]
		switch {
		case (c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') && c != 'e' && c != 'E':
			flush()
			toks = append(toks, string(c))
		case c == ',' || c == ' ' || c == '\t' || c == '\n' || c == '\r':
			flush()
		case c == '-' && cur.Len() > 0 && !strings.HasSuffix(cur.String(), "e") && !strings.HasSuffix(cur.String(), "E"):
			flush()
			cur.WriteByte(c)
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return toks
}

func parseNumbers(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' || r == '\n' })
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseLength(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "px"))
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

var namedColors = map[string]color.RGBA{
	"black":   {A: 255},
	"white":   {R: 255, G: 255, B: 255, A: 255},
	"red":     {R: 255, A: 255},
	"green":   {G: 128, A: 255},
	"lime":    {G: 255, A: 255},
	"blue":    {B: 255, A: 255},
	"yellow":  {R: 255, G: 255, A: 255},
	"cyan":    {G: 255, B: 255, A: 255},
	"magenta": {R: 255, B: 255, A: 255},
	"gray":    {R: 128, G: 128, B: 128, A: 255},
	"grey":    {R: 128, G: 128, B: 128, A: 255},
	"orange":  {R: 255, G: 165, A: 255},
}

// parseColor returns nil for "none".
func parseColor(s string) (color.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "none" || s == "transparent" {
		return nil, nil
	}
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) == 6 {
			v, err := strconv.ParseUint(hex, 16, 32)
			if err == nil {
				return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
			}
		}
	}
	if strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")") {
		v, err := parseNumbers(s[4 : len(s)-1])
		if err == nil && len(v) == 3 {
			return color.RGBA{R: uint8(v[0]), G: uint8(v[1]), B: uint8(v[2]), A: 255}, nil
		}
	}
	return nil, fmt.Errorf("unsupported color %q", s)
}
