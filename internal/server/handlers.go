package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/scangate/internal/barcode"
	"github.com/MeKo-Tech/scangate/internal/gate"
	"github.com/MeKo-Tech/scangate/internal/pipeline"
	"github.com/MeKo-Tech/scangate/internal/utils"
)

const (
	formatText = "text"
	formatCSV  = "csv"

	// maxJSONBodyBytes bounds /evaluate and /formats request bodies.
	maxJSONBodyBytes = 1 << 20
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: s.version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	s.writeJSON(w, http.StatusOK, response)
}

// formatsHandler reports (GET) or replaces (PUT) the active format filter.
func (s *Server) formatsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.formatsResponse(s.engine.Filter(), nil, true))
	case http.MethodPut, http.MethodPost:
		var req FormatsRequest
		if err := decodeJSONBody(w, r, &req); err != nil {
			s.writeErrorResponse(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		filter, unrecognized := gate.NewFormatFilter(req.Formats...)
		s.engine.Reconfigure(filter)
		slog.Info("Format filter reconfigured", "formats", filter.Names(), "unrecognized", unrecognized)
		s.writeJSON(w, http.StatusOK, s.formatsResponse(filter, unrecognized, false))
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) formatsResponse(f gate.FormatFilter, unrecognized []string, withTable bool) FormatsResponse {
	resp := FormatsResponse{
		Formats:      f.Names(),
		Unrestricted: f.Unrestricted(),
		MLKitMask:    barcode.MLKitMask(f.Symbologies()),
		Unrecognized: unrecognized,
	}
	if withTable {
		resp.Symbologies = symbologyTable()
	}
	return resp
}

// symbologyTable lists every symbology with its vendor identifiers.
func symbologyTable() []SymbologyInfo {
	all := barcode.AllSymbologies()
	out := make([]SymbologyInfo, len(all))
	for i, sym := range all {
		info := SymbologyInfo{Name: barcode.SymbologyToName(sym)}
		info.MLKit, _ = barcode.MLKitFormat(sym)
		info.Vision, _ = barcode.VisionSymbology(sym)
		info.ZXing, _ = barcode.ZXingName(sym)
		out[i] = info
	}
	return out
}

// evaluateHandler runs posted detections through the acceptance engine.
func (s *Server) evaluateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req EvaluateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	detections, err := s.detections(req.Detection, req.Detections)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	decisions := s.engine.EvaluateAll(detections, s.viewport(req.Viewport))
	recordDecisions("evaluate", decisions)

	resp := EvaluateResponse{Decisions: decisions}
	if first, ok := gate.FirstAccepted(decisions); ok {
		resp.Event = first.Event()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// scanImageHandler decodes barcodes from an uploaded still image.
func (s *Server) scanImageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	maxBytes := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	frame, err := parseFrameForm(r)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	img, _, err := utils.DecodeImage(file)
	if err != nil {
		scanRequestsTotal.WithLabelValues("invalid").Inc()
		s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if s.timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
		defer cancel()
	}

	res, err := s.pipeline.ProcessImage(ctx, img, frame)
	if err != nil {
		scanRequestsTotal.WithLabelValues("error").Inc()
		var procErr *utils.ImageProcessingError
		if errors.As(err, &procErr) {
			s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.writeErrorResponse(w, fmt.Sprintf("Scan failed: %v", err), http.StatusInternalServerError)
		return
	}

	scanRequestsTotal.WithLabelValues("success").Inc()
	scanDecodeDuration.Observe(time.Duration(res.Processing.DecodeNs).Seconds())
	barcodesDecoded.Observe(float64(len(res.Barcodes)))
	recordDecisions("image", res.Decisions())

	s.writeScanResult(w, r, res)
}

// writeScanResult renders a scan result in the requested format (json by default).
func (s *Server) writeScanResult(w http.ResponseWriter, r *http.Request, res *pipeline.ScanImageResult) {
	format := r.FormValue("format")
	if format == "" {
		format = r.URL.Query().Get("format")
	}

	switch format {
	case formatText:
		text, err := pipeline.ToPlainTextImage(res)
		if err != nil {
			s.writeErrorResponse(w, fmt.Sprintf("formatting failed: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(text))
	case formatCSV:
		text, err := pipeline.ToCSVImages([]*pipeline.ScanImageResult{res})
		if err != nil {
			s.writeErrorResponse(w, fmt.Sprintf("formatting failed: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(text))
	default:
		s.writeJSON(w, http.StatusOK, res)
	}
}

// parseFrameForm reads the optional viewport form fields of a scan upload.
func parseFrameForm(r *http.Request) (pipeline.Frame, error) {
	var frame pipeline.Frame
	if v := r.FormValue("rotation"); v != "" {
		rot, err := strconv.Atoi(v)
		if err != nil {
			return frame, fmt.Errorf("invalid rotation %q", v)
		}
		frame.Rotation = rot
	}

	floats := []struct {
		name string
		set  func(float64)
	}{
		{"view_height", func(f float64) { frame.ViewHeight = f }},
		{"overlay_top", func(f float64) { frame.OverlayTop = &f }},
		{"overlay_height", func(f float64) { frame.OverlayHeight = &f }},
		{"density", func(f float64) { frame.Density = f }},
	}
	for _, field := range floats {
		v := r.FormValue(field.name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return frame, fmt.Errorf("invalid %s %q", field.name, v)
		}
		field.set(f)
	}
	return frame, nil
}

// decodeJSONBody decodes a size-limited JSON request body into v.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// writeJSON writes v as a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Error: message})
}
