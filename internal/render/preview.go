// Package render produces diagnostic PNG previews of a matching pass:
// entity extents, owning clusters, tag labels, and problem markers.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"pid-extract/internal/drawing"
	"pid-extract/internal/match"
	"pid-extract/pkg/geometry"
)

// Options configures the preview rendering.
type Options struct {
	// Width is the output image width in pixels; height follows the drawing
	// aspect ratio.
	Width int

	// Margin is the world-space margin added around the drawing extents.
	Margin float64
}

// DefaultOptions returns the default preview options.
func DefaultOptions() Options {
	return Options{Width: 1600, Margin: 20}
}

var (
	colorBackground = color.RGBA{255, 255, 255, 255}
	colorEntity     = color.RGBA{160, 160, 160, 255}
	colorMatched    = color.RGBA{0, 160, 0, 255}
	colorUnmatched  = color.RGBA{230, 140, 0, 255}
	colorMarker     = color.RGBA{220, 0, 0, 255}
	colorTag        = color.RGBA{0, 0, 0, 255}
	colorZone       = color.RGBA{120, 150, 220, 255}
)

// Preview renders the snapshot with the pass result overlaid. result may be
// nil to render the bare snapshot.
func Preview(snap *drawing.Snapshot, result *match.Result, opts Options) *image.RGBA {
	world := worldBounds(snap, opts.Margin)
	scale := float64(opts.Width) / math.Max(world.Width(), 1)
	height := int(math.Max(world.Height()*scale, 1)) + 1

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, height))
	fill(img, colorBackground)

	toPx := func(p geometry.Point2D) (int, int) {
		// Drawing Y grows upward; image Y grows downward.
		return int((p.X - world.Min.X) * scale), int((world.Max.Y - p.Y) * scale)
	}
	rectPx := func(r geometry.Rect) (int, int, int, int) {
		x1, y2 := toPx(r.Min)
		x2, y1 := toPx(r.Max)
		return x1, y1, x2, y2
	}

	for _, z := range snap.Zones {
		x1, y1, x2, y2 := rectPx(z.Bounds)
		drawRect(img, x1, y1, x2, y2, colorZone)
	}

	for _, e := range snap.Entities {
		if !e.HasValidBounds() {
			continue
		}
		x1, y1, x2, y2 := rectPx(e.Bounds)
		drawRect(img, x1, y1, x2, y2, colorEntity)
	}

	if result != nil {
		byID := make(map[string]drawing.Entity, len(snap.Entities))
		for _, e := range snap.Entities {
			byID[e.ID] = e
		}
		for _, rec := range result.Records {
			bounds, ok := clusterBounds(rec, byID)
			if !ok {
				continue
			}
			c := colorMatched
			if !rec.Matched {
				c = colorUnmatched
			}
			x1, y1, x2, y2 := rectPx(bounds.Expand(2))
			drawRect(img, x1, y1, x2, y2, c)
			drawRect(img, x1-1, y1-1, x2+1, y2+1, c)
		}
	}

	for _, m := range snap.Markers {
		half := m.Size / 2
		x1, y1, x2, y2 := rectPx(geometry.Rect{
			Min: geometry.Point2D{X: m.Position.X - half, Y: m.Position.Y - half},
			Max: geometry.Point2D{X: m.Position.X + half, Y: m.Position.Y + half},
		})
		drawRect(img, x1, y1, x2, y2, colorMarker)
	}

	for _, t := range snap.Tags {
		x, y := toPx(t.Position)
		drawLabel(img, x+3, y-3, t.Text, colorTag)
	}

	return img
}

// WritePNG writes the preview image to a file.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preview file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}

// worldBounds returns the drawing extents with a margin, covering entities,
// tags, zones, and markers.
func worldBounds(snap *drawing.Snapshot, margin float64) geometry.Rect {
	var pts []geometry.Point2D
	for _, e := range snap.Entities {
		if e.HasValidBounds() {
			pts = append(pts, e.Bounds.Min, e.Bounds.Max)
		}
	}
	for _, t := range snap.Tags {
		pts = append(pts, t.Position)
	}
	for _, z := range snap.Zones {
		pts = append(pts, z.Bounds.Min, z.Bounds.Max)
	}
	for _, m := range snap.Markers {
		pts = append(pts, m.Position)
	}
	if len(pts) == 0 {
		return geometry.NewRect(geometry.Point2D{X: 0, Y: 0}, geometry.Point2D{X: 100, Y: 100})
	}
	return geometry.BoundingBox(pts).Expand(margin)
}

// clusterBounds unions the bounds of the record's provenance entities.
func clusterBounds(rec match.Record, byID map[string]drawing.Entity) (geometry.Rect, bool) {
	var bounds geometry.Rect
	found := false
	for _, id := range rec.ClusterEntityIDs {
		e, ok := byID[id]
		if !ok {
			continue
		}
		if !found {
			bounds = e.Bounds
			found = true
		} else {
			bounds = bounds.Union(e.Bounds)
		}
	}
	return bounds, found
}

func fill(img *image.RGBA, c color.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

// drawRect draws a one-pixel rectangle outline, clipped to the image.
func drawRect(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	for x := x1; x <= x2; x++ {
		setPx(img, x, y1, c)
		setPx(img, x, y2, c)
	}
	for y := y1; y <= y2; y++ {
		setPx(img, x1, y, c)
		setPx(img, x2, y, c)
	}
}

func setPx(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

// drawLabel renders a text label with the fixed basicfont face.
func drawLabel(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
