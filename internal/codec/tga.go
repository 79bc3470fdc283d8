package codec

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
)

// encodeTGA writes an uncompressed 32-bit top-left-origin Targa file.
func encodeTGA(w io.Writer, img image.Image) error {
	b := img.Bounds()
	if b.Dx() > math.MaxUint16 || b.Dy() > math.MaxUint16 {
		return fmt.Errorf("tga: image too large (%dx%d)", b.Dx(), b.Dy())
	}
	bw := bufio.NewWriter(w)

	header := make([]byte, 18)
	header[2] = 2 // uncompressed true-color
	binary.LittleEndian.PutUint16(header[12:], uint16(b.Dx()))
	binary.LittleEndian.PutUint16(header[14:], uint16(b.Dy()))
	header[16] = 32
	header[17] = 0x28 // 8 alpha bits, top-left origin
	if _, err := bw.Write(header); err != nil {
		return err
	}

	px := make([]byte, 4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			px[0], px[1], px[2], px[3] = c.B, c.G, c.R, c.A
			if _, err := bw.Write(px); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// encodeHDR writes a flat (non run-length) Radiance RGBE file.
func encodeHDR(w io.Writer, img image.Image) error {
	b := img.Bounds()
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n-Y %d +X %d\n", b.Dy(), b.Dx()); err != nil {
		return err
	}
	px := make([]byte, 4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			rgbe(px, float64(r)/0xffff, float64(g)/0xffff, float64(bl)/0xffff)
			if _, err := bw.Write(px); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func rgbe(dst []byte, r, g, b float64) {
	v := max(r, g, b)
	if v < 1e-32 {
		dst[0], dst[1], dst[2], dst[3] = 0, 0, 0, 0
		return
	}
	frac, exp := math.Frexp(v)
	scale := frac * 256 / v
	dst[0] = byte(r * scale)
	dst[1] = byte(g * scale)
	dst[2] = byte(b * scale)
	dst[3] = byte(exp + 128)
}
