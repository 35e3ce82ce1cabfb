package export

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/orthodraw/orthodraw/backend-go/internal/document"
	"github.com/orthodraw/orthodraw/backend-go/internal/geometry"
	"github.com/orthodraw/orthodraw/backend-go/internal/routing"
)

const arrowSize = 8.0

// RenderSVG renders one canvas of a document as a standalone SVG.
func RenderSVG(doc *document.Document, canvasID string, router *routing.Engine) ([]byte, error) {
	canvas, ok := doc.Canvases[canvasID]
	if !ok {
		return nil, fmt.Errorf("canvas not found: %s", canvasID)
	}

	paths, err := resolvePaths(doc, canvas, router)
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		canvas.Width, canvas.Height, canvas.Width, canvas.Height)
	if canvas.Background != "" {
		fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="%s"/>`+"\n",
			canvas.Width, canvas.Height, escape(canvas.Background))
	}

	for _, id := range canvas.Nodes {
		n, ok := doc.Nodes[id]
		if !ok || !n.Visible {
			continue
		}
		writeNodeSVG(&b, n)
	}

	for _, cp := range paths {
		writeConnectorSVG(&b, cp)
	}

	b.WriteString("</svg>\n")
	return b.Bytes(), nil
}

func writeNodeSVG(b *bytes.Buffer, n document.Node) {
	r := n.Bounds
	attrs := shapeAttrs(n.Style)

	switch n.Type {
	case document.NodeTypeEllipse:
		fmt.Fprintf(b, `<ellipse cx="%g" cy="%g" rx="%g" ry="%g"%s/>`+"\n",
			r.X+r.Width/2, r.Y+r.Height/2, r.Width/2, r.Height/2, attrs)
	case document.NodeTypeDiamond:
		fmt.Fprintf(b, `<polygon points="%g,%g %g,%g %g,%g %g,%g"%s/>`+"\n",
			r.X+r.Width/2, r.Y,
			r.X+r.Width, r.Y+r.Height/2,
			r.X+r.Width/2, r.Y+r.Height,
			r.X, r.Y+r.Height/2, attrs)
	case document.NodeTypeText:
		// Text nodes have no shape, only the label below.
	default:
		fmt.Fprintf(b, `<rect x="%g" y="%g" width="%g" height="%g" rx="4"%s/>`+"\n",
			r.X, r.Y, r.Width, r.Height, attrs)
	}

	if n.Label != "" {
		c := r.Center()
		fmt.Fprintf(b, `<text x="%g" y="%g" text-anchor="middle" dominant-baseline="middle" font-family="monospace" font-size="13">%s</text>`+"\n",
			c.X, c.Y, escape(n.Label))
	}
}

func writeConnectorSVG(b *bytes.Buffer, cp connectorPath) {
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

	var pts bytes.Buffer
	for i, p := range cp.points {
		if i > 0 {
			pts.WriteByte(' ')
		}
		fmt.Fprintf(&pts, "%g,%g", p.X, p.Y)
	}
	fmt.Fprintf(b, `<polyline points="%s" fill="none" stroke="%s" stroke-width="%g"/>`+"\n",
		pts.String(), escape(stroke), width)

	writeArrowheadSVG(b, cp.points, stroke)

	if cp.conn.Label != "" {
		at := labelAnchor(cp.points)
		fmt.Fprintf(b, `<text x="%g" y="%g" text-anchor="middle" font-family="monospace" font-size="12">%s</text>`+"\n",
			at.X, at.Y-4, escape(cp.conn.Label))
	}
}

func writeArrowheadSVG(b *bytes.Buffer, points []geometry.Point, stroke string) {
	tip := points[len(points)-1]
	prev := points[len(points)-2]

	// Unit direction of the final segment; paths are orthogonal so one of
	// the two components is always zero.
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
	fmt.Fprintf(b, `<polygon points="%g,%g %g,%g %g,%g" fill="%s"/>`+"\n",
		tip.X, tip.Y,
		baseX-dy*arrowSize/2, baseY-dx*arrowSize/2,
		baseX+dy*arrowSize/2, baseY+dx*arrowSize/2,
		escape(stroke))
}

func shapeAttrs(s document.Style) string {
	fill := s.Fill
	if fill == "" {
		fill = "none"
	}
	stroke := s.Stroke
	if stroke == "" {
		stroke = "#333333"
	}
	width := s.StrokeWidth
	if width <= 0 {
		width = 1
	}
	attrs := fmt.Sprintf(` fill="%s" stroke="%s" stroke-width="%g"`, escape(fill), escape(stroke), width)
	if s.Opacity > 0 && s.Opacity < 1 {
		attrs += fmt.Sprintf(` opacity="%g"`, s.Opacity)
	}
	return attrs
}

func escape(s string) string {
	var b bytes.Buffer
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
