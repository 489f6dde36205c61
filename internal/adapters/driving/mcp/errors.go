// Package mcp provides an MCP (Model Context Protocol) server adapter for docchat.
// It lets AI assistants search the document corpus and chat about it.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
