// Package mcp implements the Model Context Protocol (MCP) server for mailsearch.
//
// The server exposes three tools to MCP clients:
//   - search_emails: Hybrid lexical + semantic search with enrichment
//   - get_status: Email store statistics and corpus cache state
//   - refresh_corpus: Reload the corpus cache after ingestion
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Logs go to stderr so they never interleave with protocol messages.
//
// # Basic Usage
//
//	mailsearch serve --db db/emails.db
//
// # Tool: search_emails
//
//	Request:
//	{
//	  "name": "search_emails",
//	  "arguments": {"query": "quarterly budget"}
//	}
//
//	Response:
//	{
//	  "query": "quarterly budget",
//	  "lexical": [
//	    {"id": 42, "subject": "Budget", "body": "...", "summary": "...",
//	     "category": 0, "classification": "financial"}
//	  ],
//	  "semantic": [
//	    {"id": 42, "subject": "Budget", "body": "...", "similarity": 0.61,
//	     "summary": "...", "category": 1, "classification": "financial"}
//	  ]
//	}
//
// # Error Codes
//
//   - -32602: Invalid parameters
//   - -32603: Internal error (model or storage failure)
//   - -32001: Email store not found; run ingestion first
//   - -32004: Empty query
package mcp
