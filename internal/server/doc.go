// Package server implements the MCP (Model Context Protocol) server for image
// normalization tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the normalization
// pipeline through the MCP protocol, so an assistant or automation client can
// clean up product imagery before it is published.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - image_normalize: Normalize one image file and write the PNG result
//   - image_normalize_batch: Normalize many files in bounded concurrent batches
//   - image_border_analysis: Report the border classifier's view of an image
//
// The normalize tools accept per-call overrides (detect_borders,
// trim_threshold, output_format, width, height, background, transparent) on
// top of the defaults the server was built with.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// Per-image failures inside image_normalize_batch are not tool errors; they
// are reported in the batch result alongside the successes.
//
// # Usage
//
//	srv := server.New()
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
