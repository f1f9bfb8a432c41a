package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// optionProperties are the per-call overrides shared by the normalize tools.
func optionProperties() map[string]interface{} {
	return map[string]interface{}{
		"detect_borders": map[string]interface{}{
			"type":        "boolean",
			"description": "Detect and trim light borders and flatten transparency. Default true",
		},
		"trim_threshold": map[string]interface{}{
			"type":        "integer",
			"description": "Light-detection sensitivity (0-255). Default 240",
			"minimum":     0,
			"maximum":     255,
		},
		"output_format": map[string]interface{}{
			"type":        "string",
			"description": "Output geometry: cover (fill and crop), square (fit and pad) or original (no resize). Default cover",
			"enum":        []string{"cover", "square", "original"},
		},
		"width": map[string]interface{}{
			"type":        "integer",
			"description": "Target width in pixels. Default 800",
		},
		"height": map[string]interface{}{
			"type":        "integer",
			"description": "Target height in pixels. Default 800",
		},
		"background": map[string]interface{}{
			"type":        "string",
			"description": "Background colour for flattening and padding as #rrggbb. Default #ffffff",
		},
		"transparent": map[string]interface{}{
			"type":        "boolean",
			"description": "Keep transparency instead of flattening onto the background",
		},
	}
}

func withOptions(props map[string]interface{}) map[string]interface{} {
	for k, v := range optionProperties() {
		props[k] = v
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "image_normalize",
			Description: "Normalize one product image: trim light borders, flatten transparency, resize to the canonical geometry and write a PNG. Returns the output dimensions and the border decision.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withOptions(map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the input image (PNG, JPEG or GIF)",
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path of the PNG to write",
					},
				}),
				"required": []string{"path", "output_path"},
			},
		},
		{
			Name:        "image_normalize_batch",
			Description: "Normalize many images in bounded concurrent batches. Each image succeeds or fails on its own; successes are written to output_dir as <name>.png. Returns the summary and per-file results.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withOptions(map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Absolute paths of the input images",
					},
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory the normalized PNGs are written to",
					},
					"batch_size": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum images processed concurrently. Default 5",
					},
					"pass_through": map[string]interface{}{
						"type":        "boolean",
						"description": "Copy the original bytes of failed images to output_dir unchanged",
					},
				}),
				"required": []string{"paths", "output_dir"},
			},
		},
		{
			Name:        "image_border_analysis",
			Description: "Report how the border classifier sees an image: per-edge brightness and colour variance, which edges are light, whether the border is uniform, the adaptive trim candidates and the chosen trim.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"trim_threshold": map[string]interface{}{
						"type":        "integer",
						"description": "Light-detection sensitivity (0-255). Default 240",
					},
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
