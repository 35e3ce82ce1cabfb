package export

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/orthodraw/orthodraw/backend-go/internal/document"
	"github.com/orthodraw/orthodraw/backend-go/internal/geometry"
	"github.com/orthodraw/orthodraw/backend-go/internal/routing"
)

var (
	fontOnce   sync.Once
	fontParsed *truetype.Font
	fontErr    error
)

func labelFace(size float64) (font.Face, error) {
	fontOnce.Do(func() {
		fontParsed, fontErr = truetype.Parse(gomono.TTF)
	})
	if fontErr != nil {
		return nil, fmt.Errorf("parse font: %w", fontErr)
	}
	return truetype.NewFace(fontParsed, &truetype.Options{Size: size}), nil
}

// RenderPNG rasterizes one canvas of a document. Scale multiplies the canvas
// dimensions; values outside (0, 4] fall back to 1.
func RenderPNG(doc *document.Document, canvasID string, scale float64, router *routing.Engine) ([]byte, error) {
	canvas, ok := doc.Canvases[canvasID]
	if !ok {
		return nil, fmt.Errorf("canvas not found: %s", canvasID)
	}
	if scale <= 0 || scale > 4 {
		scale = 1
	}

	paths, err := resolvePaths(doc, canvas, router)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(int(float64(canvas.Width)*scale), int(float64(canvas.Height)*scale))
	dc.Scale(scale, scale)

	if canvas.Background != "" {
		dc.SetHexColor(canvas.Background)
	} else {
		dc.SetRGB(1, 1, 1)
	}
	dc.Clear()

	face, err := labelFace(13)
	if err != nil {
		return nil, err
	}
	dc.SetFontFace(face)

	for _, id := range canvas.Nodes {
		n, ok := doc.Nodes[id]
		if !ok || !n.Visible {
			continue
		}
		drawNode(dc, n)
	}

	for _, cp := range paths {
		drawConnector(dc, cp)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawNode(dc *gg.Context, n document.Node) {
	r := n.Bounds

	switch n.Type {
	case document.NodeTypeEllipse:
		dc.DrawEllipse(r.X+r.Width/2, r.Y+r.Height/2, r.Width/2, r.Height/2)
	case document.NodeTypeDiamond:
		dc.MoveTo(r.X+r.Width/2, r.Y)
		dc.LineTo(r.X+r.Width, r.Y+r.Height/2)
		dc.LineTo(r.X+r.Width/2, r.Y+r.Height)
		dc.LineTo(r.X, r.Y+r.Height/2)
		dc.ClosePath()
	case document.NodeTypeText:
		// No shape for text nodes.
	default:
		dc.DrawRoundedRectangle(r.X, r.Y, r.Width, r.Height, 4)
	}

	if n.Type != document.NodeTypeText {
		if n.Style.Fill != "" {
			dc.SetHexColor(n.Style.Fill)
			dc.FillPreserve()
		}
		stroke := n.Style.Stroke
		if stroke == "" {
			stroke = "#333333"
		}
		dc.SetHexColor(stroke)
		width := n.Style.StrokeWidth
		if width <= 0 {
			width = 1
		}
		dc.SetLineWidth(width)
		dc.Stroke()
	}

	if n.Label != "" {
		dc.SetHexColor("#202124")
		c := r.Center()
		dc.DrawStringAnchored(n.Label, c.X, c.Y, 0.5, 0.5)
	}
}

func drawConnector(dc *gg.Context, cp connectorPath) {
	if len(cp.points) < 2 {
		return
	}

	stroke := cp.conn.Style.Stroke
	if stroke == "" {
		stroke = "#333333"
	}
	width := cp.conn.Style.StrokeWidth
	if width <= 0 {
		width = 2
	}

	dc.SetHexColor(stroke)
	dc.SetLineWidth(width)
	dc.MoveTo(cp.points[0].X, cp.points[0].Y)
	for _, p := range cp.points[1:] {
		dc.LineTo(p.X, p.Y)
	}
	dc.Stroke()

	drawArrowhead(dc, cp.points)

	if cp.conn.Label != "" {
		at := labelAnchor(cp.points)
		dc.DrawStringAnchored(cp.conn.Label, at.X, at.Y-6, 0.5, 0.5)
	}
}

func drawArrowhead(dc *gg.Context, points []geometry.Point) {
	tip := points[len(points)-1]
	prev := points[len(points)-2]

	dx, dy := 0.0, 0.0
	switch {
	case tip.X > prev.X:
		dx = 1
	case tip.X < prev.X:
		dx = -1
	case tip.Y > prev.Y:
		dy = 1
	default:
		dy = -1
	}

	baseX := tip.X - dx*arrowSize
	baseY := tip.Y - dy*arrowSize
	dc.MoveTo(tip.X, tip.Y)
	dc.LineTo(baseX-dy*arrowSize/2, baseY-dx*arrowSize/2)
	dc.LineTo(baseX+dy*arrowSize/2, baseY+dx*arrowSize/2)
	dc.ClosePath()
	dc.Fill()
}
