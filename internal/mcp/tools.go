package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/dshills/mailsearch/internal/storage"
	"github.com/dshills/mailsearch/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams     = -32602 // Invalid method parameters
	ErrorCodeInternalError     = -32603 // Internal JSON-RPC error
	ErrorCodeCorpusUnavailable = -32001 // Email store missing; ingestion has not run
	ErrorCodeEmailNotFound     = -32002 // No email with the requested id
	ErrorCodeEmptyQuery        = -32004 // Query parameter is empty
)

// handleSearchEmails handles the search_emails tool invocation
func (s *Server) handleSearchEmails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query := getStringDefault(args, "query", "")

	results, err := s.searcher.Search(ctx, query)
	if err != nil {
		return nil, s.searchError(err)
	}

	return mcp.NewToolResultText(formatJSON(results)), nil
}

// searchError maps pipeline errors to MCP error codes
func (s *Server) searchError(err error) error {
	switch {
	case errors.Is(err, types.ErrMalformedQuery):
		return newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	case errors.Is(err, types.ErrCorpusUnavailable):
		return newMCPError(ErrorCodeCorpusUnavailable, "email store not found", map[string]interface{}{
			"error": err.Error(),
			"hint":  "run ingestion first",
		})
	default:
		s.logger.Error("search failed", zap.Error(err))
		return newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	cache := s.searcher.Corpus()
	response := map[string]interface{}{
		"statistics": map[string]interface{}{
			"emails_count":   status.EmailsCount,
			"indexed_count":  status.IndexedCount,
			"schema_version": status.SchemaVersion,
			"db_size_mb":     fmt.Sprintf("%.2f", status.SizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible": status.Health.DatabaseAccessible,
			"corpus_present":      status.Health.CorpusPresent,
			"fts_index_built":     status.Health.FTSIndexBuilt,
		},
		"corpus_cache": map[string]interface{}{
			"loaded": cache.Loaded(),
			"emails": cache.Snapshot().Len(),
		},
	}

	if !status.Health.CorpusPresent {
		response["message"] = "Email store has no emails table. Run ingestion first."
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRefreshCorpus handles the refresh_corpus tool invocation
func (s *Server) handleRefreshCorpus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exists, err := s.storage.CorpusExists(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to check corpus", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if !exists {
		return nil, s.searchError(types.ErrCorpusUnavailable)
	}

	start := time.Now()
	snap, err := s.searcher.Corpus().Refresh(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "corpus refresh failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"refreshed":   true,
		"emails":      snap.Len(),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetEmail handles the get_email tool invocation
func (s *Server) handleGetEmail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id, ok := getInt64(args, "id")
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "id parameter must be an integer", map[string]interface{}{
			"param": "id",
		})
	}

	email, err := s.storage.GetEmail(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeEmailNotFound, "email not found", map[string]interface{}{
			"id": id,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get email", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"id":      email.ID,
		"subject": email.Subject,
		"body":    email.Body,
	})), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getInt64 extracts a whole-number parameter. JSON numbers decode as float64.
func getInt64(args map[string]interface{}, key string) (int64, bool) {
	switch v := args[key].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
