package webapi

import (
	"image/color"
	"strconv"

	qrcode "github.com/skip2/go-qrcode"
)

// GenerateQRCodePNG renders content as a PNG QR code. fg and bg are
// optional "rrggbb" colours; anything unparsable keeps the default.
func GenerateQRCodePNG(content string, size int, fg string, bg string) ([]byte, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return []byte{}, err
	}
	if c, ok := parseHexColor(fg); ok {
		q.ForegroundColor = c
	}
	if c, ok := parseHexColor(bg); ok {
		q.BackgroundColor = c
	}
	return q.PNG(size)
}

func parseHexColor(s string) (color.Color, bool) {
	if len(s) != 6 {
		return nil, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return nil, false
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, true
}
