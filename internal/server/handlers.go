package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/yolo-annotate/internal/annotate"
	"github.com/ironsheep/yolo-annotate/internal/darknet"
	"github.com/ironsheep/yolo-annotate/internal/imaging"
	"github.com/ironsheep/yolo-annotate/internal/ocr"
	"github.com/ironsheep/yolo-annotate/internal/pipeline"
)

// errNoDetector is returned by detect_objects when the server was started
// without a darknet runner.
var errNoDetector = errors.New("no detector configured")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "detect_objects", "annotate_image").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.Warnf("Tool %v failed: %v", params.Name, err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Detection
	case "detect_objects":
		return s.handleDetectObjects(ctx, args)
	case "parse_detector_output":
		return s.handleParseDetectorOutput(args)

	// Annotation
	case "annotate_image":
		return s.handleAnnotateImage(args)
	case "verify_labels":
		return s.handleVerifyLabels(args)

	// Classes
	case "list_classes":
		return s.handleListClasses()
	case "class_colors":
		return s.handleClassColors(args)

	// Images
	case "crop_detection":
		return s.handleCropDetection(args)
	case "image_info":
		return s.handleImageInfo(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments. Tools without required arguments may
// be called with none at all.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func requirePath(path string) error {
	if path == "" {
		return errors.New("path is required")
	}
	return nil
}

func errorStrings(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}

// seedOrDefault returns seed, or the configured seed when seed is zero.
func (s *Server) seedOrDefault(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return s.cfg.Annotate.Seed
}

// === Detection Handlers ===

type detectObjectsArgs struct {
	Images       []string `json:"images"`
	SavePath     string   `json:"save_path"`
	VerifyLabels *bool    `json:"verify_labels"`
}

type detectedImage struct {
	Index      int                       `json:"index"`
	Path       string                    `json:"path"`
	Detections []darknet.Detection       `json:"detections"`
	Labels     []annotate.LabelPlacement `json:"labels,omitempty"`
	SavedPath  string                    `json:"saved_path,omitempty"`
	Warnings   []string                  `json:"warnings,omitempty"`
	Error      string                    `json:"error,omitempty"`
	LabelCheck []ocr.LabelCheck          `json:"label_check,omitempty"`
}

type detectObjectsResult struct {
	Images []detectedImage `json:"images"`
	Failed int             `json:"failed"`
}

func (s *Server) handleDetectObjects(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectObjectsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Images) == 0 {
		return nil, darknet.ErrNoImages
	}
	if !s.pipeline.HasDetector() {
		return nil, errNoDetector
	}
	if a.SavePath == "" {
		a.SavePath = s.cfg.Annotate.SavePath
	}
	verify := s.cfg.OCR.Enabled
	if a.VerifyLabels != nil {
		verify = *a.VerifyLabels
	}

	report, err := s.pipeline.Run(ctx, a.Images, a.SavePath)
	if err != nil {
		return nil, err
	}
	// Per-image failures are reported in the result, not as a tool error.
	_ = report.Wait()

	result := detectObjectsResult{Failed: report.Failed()}
	for _, it := range report.Items {
		out := detectedImage{
			Index:      it.Index,
			Path:       it.Path,
			Detections: it.Detections,
			Labels:     it.Labels,
			SavedPath:  it.SavedPath,
			Warnings:   errorStrings(it.Warnings),
		}
		if it.Err != nil {
			out.Error = it.Err.Error()
			out.SavedPath = ""
		}
		if verify && it.Image != nil {
			checks, err := ocr.VerifyLabels(it.Image, it.Labels, s.cfg.OCR.Language)
			if err != nil {
				return nil, fmt.Errorf("label check failed: %w", err)
			}
			out.LabelCheck = checks
		}
		it.Image = nil
		result.Images = append(result.Images, out)
	}
	return result, nil
}

type parseDetectorOutputArgs struct {
	Output       string `json:"output"`
	GPU          *bool  `json:"gpu"`
	SplitKeyword string `json:"split_keyword"`
}

func (s *Server) handleParseDetectorOutput(args json.RawMessage) (interface{}, error) {
	var a parseDetectorOutputArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	gpu := s.cfg.Darknet.GPU
	if a.GPU != nil {
		gpu = *a.GPU
	}
	if a.SplitKeyword == "" {
		a.SplitKeyword = s.cfg.Darknet.SplitKeyword
	}

	blocks, err := darknet.ParseOutput(a.Output, gpu, a.SplitKeyword)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"images":     len(blocks),
		"detections": blocks,
	}, nil
}

// === Annotation Handlers ===

type annotateImageArgs struct {
	Path        string              `json:"path"`
	Detections  []darknet.Detection `json:"detections"`
	SavePath    string              `json:"save_path"`
	Seed        int64               `json:"seed"`
	ReturnImage bool                `json:"return_image"`
}

type annotateImageResult struct {
	Path        string                    `json:"path"`
	Width       int                       `json:"width"`
	Height      int                       `json:"height"`
	Labels      []annotate.LabelPlacement `json:"labels"`
	Warnings    []string                  `json:"warnings,omitempty"`
	SavedPath   string                    `json:"saved_path,omitempty"`
	ImageBase64 string                    `json:"image_base64,omitempty"`
	MimeType    string                    `json:"mime_type,omitempty"`
}

func (s *Server) handleAnnotateImage(args json.RawMessage) (interface{}, error) {
	var a annotateImageArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}

	colors := s.annotator.NewColors(s.seedOrDefault(a.Seed))
	res, err := s.annotator.AnnotateFile(s.cache, a.Path, a.Detections, colors)
	if err != nil {
		return nil, err
	}

	b := res.Image.Bounds()
	out := annotateImageResult{
		Path:     a.Path,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Labels:   res.Labels,
		Warnings: errorStrings(res.Warnings),
	}

	if a.SavePath != "" {
		saver := imaging.NewSaver()
		if err := saver.Save(res.Image, a.SavePath).Wait(); err != nil {
			return nil, err
		}
		out.SavedPath = a.SavePath
	}

	if a.ReturnImage {
		var buf bytes.Buffer
		if err := imaging.EncodePNG(&buf, res.Image); err != nil {
			return nil, err
		}
		out.ImageBase64 = base64.StdEncoding.EncodeToString(buf.Bytes())
		out.MimeType = "image/png"
	}
	return out, nil
}

type verifyLabelsArgs struct {
	Path       string              `json:"path"`
	Detections []darknet.Detection `json:"detections"`
	Seed       int64               `json:"seed"`
	Language   string              `json:"language"`
}

func (s *Server) handleVerifyLabels(args json.RawMessage) (interface{}, error) {
	var a verifyLabelsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	if a.Language == "" {
		a.Language = s.cfg.OCR.Language
	}

	colors := s.annotator.NewColors(s.seedOrDefault(a.Seed))
	res, err := s.annotator.AnnotateFile(s.cache, a.Path, a.Detections, colors)
	if err != nil {
		return nil, err
	}

	checks, err := ocr.VerifyLabels(res.Image, res.Labels, a.Language)
	if err != nil {
		return nil, err
	}
	legible := 0
	for _, c := range checks {
		if c.Legible {
			legible++
		}
	}
	return map[string]interface{}{
		"path":    a.Path,
		"labels":  checks,
		"legible": legible,
		"total":   len(checks),
	}, nil
}

// === Class Handlers ===

func (s *Server) handleListClasses() (interface{}, error) {
	return map[string]interface{}{
		"count":   s.catalog.Len(),
		"classes": s.catalog.Names(),
	}, nil
}

type classColorsArgs struct {
	Seed int64 `json:"seed"`
}

type classColor struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Hex   string `json:"hex"`
	RGB   struct {
		R uint8 `json:"r"`
		G uint8 `json:"g"`
		B uint8 `json:"b"`
	} `json:"rgb"`
}

func (s *Server) handleClassColors(args json.RawMessage) (interface{}, error) {
	var a classColorsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	seed := s.seedOrDefault(a.Seed)
	colors := s.annotator.NewColors(seed)
	out := make([]classColor, 0, colors.Len())
	for i, c := range colors.Colors() {
		cc := classColor{Index: i, Name: s.catalog.Name(i), Hex: c.Hex()}
		cc.RGB.R, cc.RGB.G, cc.RGB.B = c.R, c.G, c.B
		out = append(out, cc)
	}
	return map[string]interface{}{
		"seed":   seed,
		"colors": out,
	}, nil
}

// === Image Handlers ===

type cropDetectionArgs struct {
	Path    string  `json:"path"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	W       int     `json:"w"`
	H       int     `json:"h"`
	Padding int     `json:"padding"`
	Scale   float64 `json:"scale"`
}

func (s *Server) handleCropDetection(args json.RawMessage) (interface{}, error) {
	var a cropDetectionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.CropDetection(img, a.X, a.Y, a.W, a.H, a.Padding, a.Scale)
}

type imageInfoArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var a imageInfoArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// newPipelineOptions derives the batch options used by detect_objects. Images
// are always kept so labels can be checked on request.
func (s *Server) newPipelineOptions() pipeline.Options {
	return pipeline.Options{
		ColorScope: s.cfg.Annotate.ColorScope,
		Seed:       s.cfg.Annotate.Seed,
		KeepImages: true,
	}
}
