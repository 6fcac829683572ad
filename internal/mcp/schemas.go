package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchEmailsTool returns the tool definition for search_emails
func searchEmailsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_emails",
		Description: "Hybrid search over the email corpus. Returns lexical (all terms must match) and semantic (embedding similarity) hits, each with a summary, a cluster index and a category label",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search terms or a natural language description",
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report email store statistics and whether the corpus cache is loaded",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// refreshCorpusTool returns the tool definition for refresh_corpus
func refreshCorpusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "refresh_corpus",
		Description: "Reload and re-embed every email. Run after ingesting new mail so semantic search sees it",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getEmailTool returns the tool definition for get_email
func getEmailTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_email",
		Description: "Fetch one email by id, e.g. to read the full body of a search hit",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "integer",
					"description": "Email id as returned by search_emails",
				},
			},
			Required: []string{"id"},
		},
	}
}
