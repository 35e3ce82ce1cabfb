package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/orthodraw/orthodraw/backend-go/internal/document"
	"github.com/orthodraw/orthodraw/backend-go/internal/routing"
	"github.com/orthodraw/orthodraw/backend-go/internal/typeid"
)

const maxRequestSize = 20 << 20 // 20MB

// Handler serves diagram export endpoints. It owns a routing engine so
// connectors without a persisted route can be resolved on the fly.
type Handler struct {
	router *routing.Engine
}

func NewHandler() *Handler {
	return &Handler{router: routing.NewEngine()}
}

type exportRequest struct {
	Document *document.Document `json:"document"`
	CanvasID string             `json:"canvasId"`
	Scale    float64            `json:"scale,omitempty"`
	Name     string             `json:"name,omitempty"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*exportRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	if req.Document == nil {
		http.Error(w, "document is required", http.StatusBadRequest)
		return nil, false
	}
	if req.CanvasID == "" {
		// Default to the project's first canvas.
		if len(req.Document.Project.Canvases) == 0 {
			http.Error(w, "canvasId is required", http.StatusBadRequest)
			return nil, false
		}
		req.CanvasID = req.Document.Project.Canvases[0]
	}
	if req.Name == "" {
		req.Name = "diagram"
	}
	req.Name = sanitizeName(req.Name)
	return &req, true
}

// ExportSVG handles POST /export/svg.
func (h *Handler) ExportSVG(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	svg, err := RenderSVG(req.Document, req.CanvasID, h.router)
	if err != nil {
		slog.Error("render svg", "error", err)
		http.Error(w, "render failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	exportID := typeid.NewExportID()
	slog.Info("export complete", "format", "svg", "export", exportID, "bytes", len(svg))

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.svg"`, req.Name))
	w.WriteHeader(http.StatusOK)
	w.Write(svg)
}

// ExportPNG handles POST /export/png.
func (h *Handler) ExportPNG(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	png, err := RenderPNG(req.Document, req.CanvasID, req.Scale, h.router)
	if err != nil {
		slog.Error("render png", "error", err)
		http.Error(w, "render failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	exportID := typeid.NewExportID()
	slog.Info("export complete", "format", "png", "export", exportID, "bytes", len(png))

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.png"`, req.Name))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
