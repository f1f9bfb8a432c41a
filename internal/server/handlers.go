package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ironsheep/image-normalizer/internal/batch"
	"github.com/ironsheep/image-normalizer/internal/detection"
	imgops "github.com/ironsheep/image-normalizer/internal/imaging"
	"github.com/ironsheep/image-normalizer/internal/normalize"
	"github.com/ironsheep/image-normalizer/internal/storage"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_normalize").
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
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
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
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_normalize":
		return s.handleImageNormalize(args)
	case "image_normalize_batch":
		return s.handleImageNormalizeBatch(args)
	case "image_border_analysis":
		return s.handleImageBorderAnalysis(args)
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
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// optionArgs are per-call overrides of the server's default options.
// Unset fields keep the default.
type optionArgs struct {
	DetectBorders *bool  `json:"detect_borders"`
	TrimThreshold *int   `json:"trim_threshold"`
	OutputFormat  string `json:"output_format"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Background    string `json:"background"`
	Transparent   bool   `json:"transparent"`
}

func (a optionArgs) apply(base normalize.Options) (normalize.Options, error) {
	opts := base
	if a.DetectBorders != nil {
		opts.DetectBorders = *a.DetectBorders
	}
	if a.TrimThreshold != nil {
		opts.TrimThreshold = *a.TrimThreshold
	}
	if a.OutputFormat != "" {
		mode, err := imgops.ParseResizeMode(a.OutputFormat)
		if err != nil {
			return opts, err
		}
		opts.Resize.Mode = mode
	}
	if a.Width > 0 {
		opts.Resize.Width = a.Width
	}
	if a.Height > 0 {
		opts.Resize.Height = a.Height
	}
	if a.Background != "" {
		bg, err := imgops.ParseBackground(a.Background)
		if err != nil {
			return opts, err
		}
		opts.Background = bg
	}
	if a.Transparent {
		opts.Background.Alpha = 0
	}
	return opts, opts.Validate()
}

// === Normalization Handlers ===

type imageNormalizeArgs struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path"`
	optionArgs
}

type imageNormalizeResult struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path"`
	*normalize.Output
}

func (s *Server) handleImageNormalize(args json.RawMessage) (interface{}, error) {
	var a imageNormalizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" || a.OutputPath == "" {
		return nil, errors.New("path and output_path are required")
	}
	opts, err := a.apply(s.defaults)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	out, err := s.normalizer.NormalizeImage(raw, filepath.Base(a.Path), opts)
	if err != nil {
		return nil, err
	}

	sink := storage.NewDirSink(filepath.Dir(a.OutputPath))
	dest, err := sink.Put(context.Background(), filepath.Base(a.OutputPath), out.Data)
	if err != nil {
		return nil, err
	}

	return imageNormalizeResult{Path: a.Path, OutputPath: dest, Output: out}, nil
}

type imageNormalizeBatchArgs struct {
	Paths       []string `json:"paths"`
	OutputDir   string   `json:"output_dir"`
	BatchSize   int      `json:"batch_size"`
	PassThrough bool     `json:"pass_through"`
	optionArgs
}

type batchItem struct {
	Path          string `json:"path"`
	OutputPath    string `json:"output_path,omitempty"`
	Renamed       bool   `json:"renamed,omitempty"`
	Fallback      bool   `json:"fallback,omitempty"`
	FallbackError string `json:"fallback_error,omitempty"`
	Error         string `json:"error,omitempty"`
}

type imageNormalizeBatchResult struct {
	batch.Summary
	Results []batchItem `json:"results"`
}

func (s *Server) handleImageNormalizeBatch(args json.RawMessage) (interface{}, error) {
	var a imageNormalizeBatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, errors.New("paths must not be empty")
	}
	if a.OutputDir == "" {
		return nil, errors.New("output_dir is required")
	}
	opts, err := a.apply(s.defaults)
	if err != nil {
		return nil, err
	}
	if a.BatchSize <= 0 {
		a.BatchSize = s.batchSize
	}

	orch := batch.New(s.normalizer, a.BatchSize)
	orch.PassThroughOnFailure = a.PassThrough
	orch.Debug = s.debug

	ctx := context.Background()
	results, _, err := orch.ProcessAll(ctx, batch.LoadFiles(a.Paths), opts)
	if err != nil {
		return nil, err
	}

	written := storage.WriteResults(ctx, storage.NewDirSink(a.OutputDir), results)
	items := make([]batchItem, len(results))
	for i, r := range results {
		items[i] = batchItem{
			Path:       a.Paths[i],
			OutputPath: written[i].Location,
			Renamed:    written[i].Renamed,
			Fallback:   written[i].Fallback,
			Error:      r.Error,
		}
		if written[i].Err != nil {
			items[i].FallbackError = written[i].Err.Error()
		}
	}

	summary, err := batch.Summarize(results)
	if err != nil {
		return nil, err
	}
	return imageNormalizeBatchResult{Summary: summary, Results: items}, nil
}

// === Border Analysis Handler ===

type imageBorderAnalysisArgs struct {
	Path          string `json:"path"`
	TrimThreshold *int   `json:"trim_threshold"`
}

type imageBorderAnalysisResult struct {
	Path                 string               `json:"path"`
	Image                imgops.ImageInfo     `json:"image"`
	UniformTrimThreshold float64              `json:"uniform_trim_threshold"`
	Decision             detection.Decision   `json:"decision"`
	Selected             *detection.Candidate `json:"selected,omitempty"`
	TrimmedWidth         int                  `json:"trimmed_width"`
	TrimmedHeight        int                  `json:"trimmed_height"`
}

func (s *Server) handleImageBorderAnalysis(args json.RawMessage) (interface{}, error) {
	var a imageBorderAnalysisArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	threshold := s.defaults.TrimThreshold
	if a.TrimThreshold != nil {
		threshold = *a.TrimThreshold
	}
	if threshold < 0 || threshold > 255 {
		return nil, fmt.Errorf("trim threshold %d outside 0-255", threshold)
	}

	raw, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	decoded, err := imgops.Decode(raw)
	if err != nil {
		return nil, &normalize.DecodeError{Filename: filepath.Base(a.Path), Err: err}
	}

	classifier := s.normalizer.Classifier
	d := classifier.Classify(decoded.Image, threshold)

	res := imageBorderAnalysisResult{
		Path:                 a.Path,
		Image:                decoded.Info,
		UniformTrimThreshold: classifier.Policy().UniformTrimThreshold(threshold),
		Decision:             d,
		TrimmedWidth:         d.Bounds.Dx(),
		TrimmedHeight:        d.Bounds.Dy(),
	}
	if d.Method == detection.MethodAdaptive {
		for i := range d.Candidates {
			if d.Candidates[i].Threshold == d.Threshold {
				res.Selected = &d.Candidates[i]
				break
			}
		}
	}
	return res, nil
}
