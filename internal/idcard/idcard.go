// Package idcard renders participant and volunteer badges with QR and Code128 codes.
package idcard

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/churchevent-ux/registerform--event-final/internal/category"
	"github.com/churchevent-ux/registerform--event-final/internal/model"
)

// Card geometry in pixels.
const (
	CardWidth     = 640
	CardHeight    = 400
	qrSize        = 200
	barcodeWidth  = 360
	barcodeHeight = 80
	headerHeight  = 64
)

var (
	kidsColor  = color.RGBA{R: 0xd3, G: 0x2f, B: 0x2f, A: 0xff}
	teenColor  = color.RGBA{R: 0x19, G: 0x76, B: 0xd2, A: 0xff}
	otherColor = color.RGBA{R: 0x75, G: 0x75, B: 0x75, A: 0xff}

	volunteerColor = color.RGBA{R: 0x6c, G: 0x34, B: 0x83, A: 0xff}
	idColor        = color.RGBA{R: 0x8b, G: 0x00, B: 0x00, A: 0xff}
)

// QR renders content as a square PNG QR code.
func QR(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qr: empty content")
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}

// Barcode renders content as a Code128 PNG.
func Barcode(content string, width, height int) ([]byte, error) {
	img, err := barcodeImage(content, width, height)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func barcodeImage(content string, width, height int) (image.Image, error) {
	bc, err := code128.Encode(content)
	if err != nil {
		return nil, fmt.Errorf("barcode: %w", err)
	}
	return barcode.Scale(bc, width, height)
}

// Color returns the badge colour of a category code.
func Color(code string) color.RGBA {
	switch code {
	case category.CodeKids:
		return kidsColor
	case category.CodeTeen:
		return teenColor
	default:
		return otherColor
	}
}

// Card composes a printable badge for p, classified with bands.
func Card(p model.Participant, bands category.Bands) ([]byte, error) {
	if p.Identifier == "" {
		return nil, fmt.Errorf("card: participant has no identifier")
	}
	code := category.CodeNA
	label := "N/A"
	if p.Age.Valid {
		res := bands.Classify(p.Age.Int)
		code = res.Code
		if res.Eligible {
			label = res.Label
		}
	}
	lines := []line{
		{color.Black, p.Name},
		{color.Black, p.Identifier},
		{Color(code), label},
	}
	if p.Age.Valid {
		lines = append(lines, line{color.Black, fmt.Sprintf("Age %d", p.Age.Int)})
	}
	return compose(badge{
		header:  Color(code),
		title:   "TEENS & KIDS RETREAT",
		content: p.Identifier,
		barcode: true,
		lines:   lines,
	})
}

// VolunteerCard composes a volunteer badge; the QR code carries the volunteer id.
func VolunteerCard(v model.Volunteer) ([]byte, error) {
	if v.VolunteerID == "" {
		return nil, fmt.Errorf("card: volunteer has no id")
	}
	return compose(badge{
		header:  volunteerColor,
		title:   "RETREAT VOLUNTEER",
		content: v.VolunteerID,
		lines: []line{
			{color.Black, v.FullName},
			{idColor, "ID: " + v.VolunteerID},
			{color.Black, "Role: " + orDash(v.PreferredRole, "Volunteer")},
			{color.Black, "Location: " + orDash(v.PreferredLocation, "-")},
			{color.Black, "T-Shirt: " + orDash(v.TShirtSize, "-")},
		},
	})
}

func orDash(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

type line struct {
	color color.Color
	text  string
}

type badge struct {
	header  color.Color
	title   string
	content string
	barcode bool
	lines   []line
}

// compose draws the shared layout: coloured header, QR on the left, text lines on the right
// and an optional Code128 strip at the bottom.
func compose(b badge) ([]byte, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, CardWidth, CardHeight))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(0, 0, CardWidth, headerHeight), image.NewUniform(b.header), image.Point{}, draw.Src)

	qrPNG, err := QR(b.content, qrSize)
	if err != nil {
		return nil, err
	}
	qrImg, err := png.Decode(bytes.NewReader(qrPNG))
	if err != nil {
		return nil, err
	}
	qrAt := image.Pt(24, headerHeight+24)
	draw.Draw(canvas, image.Rectangle{Min: qrAt, Max: qrAt.Add(qrImg.Bounds().Size())}, qrImg, qrImg.Bounds().Min, draw.Src)

	if b.barcode {
		bcImg, err := barcodeImage(b.content, barcodeWidth, barcodeHeight)
		if err != nil {
			return nil, err
		}
		bcAt := image.Pt(CardWidth-barcodeWidth-24, CardHeight-barcodeHeight-24)
		draw.Draw(canvas, image.Rectangle{Min: bcAt, Max: bcAt.Add(image.Pt(barcodeWidth, barcodeHeight))}, bcImg, bcImg.Bounds().Min, draw.Src)
	}

	text(canvas, 24, 40, color.White, b.title)
	x := qrAt.X + qrSize + 32
	for i, l := range b.lines {
		text(canvas, x, headerHeight+48+28*i, l.color, l.text)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func text(dst draw.Image, x, y int, c color.Color, s string) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
