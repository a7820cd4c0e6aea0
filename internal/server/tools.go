package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// Schema fragments shared by several tools.
var (
	pathProperty = map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}

	detectionsProperty = map[string]interface{}{
		"type":        "array",
		"description": "Detections to draw, as returned by detect_objects or parse_detector_output",
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name": map[string]interface{}{"type": "string", "description": "Class name"},
				"prob": map[string]interface{}{"type": "integer", "description": "Confidence percentage, 0-100"},
				"box": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"x": map[string]interface{}{"type": "integer"},
						"y": map[string]interface{}{"type": "integer"},
						"w": map[string]interface{}{"type": "integer"},
						"h": map[string]interface{}{"type": "integer"},
					},
					"required": []string{"x", "y", "w", "h"},
				},
			},
			"required": []string{"name", "prob", "box"},
		},
	}

	seedProperty = map[string]interface{}{
		"type":        "integer",
		"description": "Optional seed for the class color shuffle. 0 uses the configured seed",
		"default":     0,
	}
)

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Detection
		{
			Name:        "detect_objects",
			Description: "Run the darknet YOLO detector on a batch of images, draw labeled boxes on each and optionally save the results as PNG. Returns the detections and per-image outcome.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"images": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Absolute paths of the images, in order",
					},
					"save_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional output path. A path ending in .png is used for every image; anything else is a prefix to which the image index and .png are appended",
					},
					"verify_labels": map[string]interface{}{
						"type":        "boolean",
						"description": "Read every drawn label back with OCR and report whether it is legible. Default false",
						"default":     false,
					},
				},
				"required": []string{"images"},
			},
		},
		{
			Name:        "parse_detector_output",
			Description: "Parse captured console output of 'darknet detector test -ext_output' into one detection list per image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"output": map[string]interface{}{
						"type":        "string",
						"description": "The detector's complete standard output",
					},
					"gpu": map[string]interface{}{
						"type":        "boolean",
						"description": "Whether the output came from a GPU build (1 banner line instead of 3). Defaults to the server configuration",
					},
					"split_keyword": map[string]interface{}{
						"type":        "string",
						"description": "Marker text separating images. Default \"Predicted in\"",
					},
				},
				"required": []string{"output"},
			},
		},

		// Annotation
		{
			Name:        "annotate_image",
			Description: "Draw labeled bounding boxes for the given detections onto an image. Returns where each label was drawn and, optionally, the annotated image as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":       pathProperty,
					"detections": detectionsProperty,
					"save_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional output file for the annotated PNG",
					},
					"seed": seedProperty,
					"return_image": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the annotated image as base64 PNG in the result. Default false",
						"default":     false,
					},
				},
				"required": []string{"path", "detections"},
			},
		},
		{
			Name:        "verify_labels",
			Description: "Annotate an image and read each drawn label back with Tesseract OCR to check that it is legible.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":       pathProperty,
					"detections": detectionsProperty,
					"seed":       seedProperty,
					"language": map[string]interface{}{
						"type":        "string",
						"description": "Tesseract language code. Defaults to the server configuration",
					},
				},
				"required": []string{"path", "detections"},
			},
		},

		// Classes
		{
			Name:        "list_classes",
			Description: "List the class names known to the detector model, in class id order.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "class_colors",
			Description: "Return the color each class would be drawn in for a given shuffle seed.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"seed": seedProperty,
				},
			},
		},

		// Images
		{
			Name:        "crop_detection",
			Description: "Crop the region of one detection box from an image and return it as base64-encoded PNG. The region is clipped to the image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "Left edge of the box",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Top edge of the box",
					},
					"w": map[string]interface{}{
						"type":        "integer",
						"description": "Box width",
					},
					"h": map[string]interface{}{
						"type":        "integer",
						"description": "Box height",
					},
					"padding": map[string]interface{}{
						"type":        "integer",
						"description": "Extra pixels to include on every side. Default 0",
						"default":     0,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path", "x", "y", "w", "h"},
			},
		},
		{
			Name:        "image_info",
			Description: "Get the dimensions, format and file size of an image, and the box outline width used when annotating it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
