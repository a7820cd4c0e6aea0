// Package server implements the MCP (Model Context Protocol) server for YOLO
// detection and annotation.
//
// This package provides a JSON-RPC 2.0 server that exposes the darknet runner,
// the output parser and the box annotator as MCP tools, so that an MCP client
// can run detection on images and inspect the labeled results.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Diagnostics go to the logs.Log passed to New, never to stdout.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Detection:
//   - detect_objects: Run darknet on a batch of images and annotate each one
//   - parse_detector_output: Parse captured darknet console output
//
// Annotation:
//   - annotate_image: Draw given detections onto an image
//   - verify_labels: Annotate, then read each label back with OCR
//
// Classes:
//   - list_classes: Class names in id order
//   - class_colors: Class colors for a shuffle seed
//
// Images:
//   - crop_detection: Extract the region of one detection box
//   - image_info: Dimensions, format and outline width
//
// detect_objects reports per-image failures inside its result. Only failures
// that affect the whole batch, such as darknet exiting non-zero, become a tool
// error.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.New(logger, cfg, cat, runner)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
