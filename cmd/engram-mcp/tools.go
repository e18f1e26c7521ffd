package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/engramkit/engram/pkg/engram"
	"github.com/engramkit/engram/pkg/errors"
	"github.com/engramkit/engram/pkg/mem"
)

// jsonResult renders v as indented JSON tool output.
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encoding tool result")
	}
	return mcp.NewToolResultText(string(out)), nil
}

// addTool stores a new memory.
type addTool struct {
	client engram.Client
}

func newAddTool(client engram.Client) *addTool {
	return &addTool{client: client}
}

func (t *addTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_add",
		mcp.WithDescription("Store a short text memory with optional tags. Returns the stored record, including its id and the keywords derived from the text."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The memory text. Short, factual statements work best."),
		),
		mcp.WithArray("tags",
			mcp.Description("Labels for the memory. Tags are trimmed, lower-cased, and de-duplicated."),
			mcp.Items(map[string]interface{}{"type": "string"}),
		),
	)
}

func (t *addTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tags := req.GetStringSlice("tags", nil)

	record, err := t.client.Add(ctx, text, tags)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(record)
}

// searchTool ranks stored memories against a keyword query.
type searchTool struct {
	client engram.Client
}

func newSearchTool(client engram.Client) *searchTool {
	return &searchTool{client: client}
}

func (t *searchTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_search",
		mcp.WithDescription("Search stored memories by keyword. Returns matching records with relevance scores, best match first."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Keywords to match against memory text, tags, and derived keywords."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results. Omit for the configured default."),
		),
	)
}

func (t *searchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", 0)

	hits, err := t.client.Search(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("No memories matched the query."), nil
	}
	return jsonResult(hits)
}

// contextTool builds a budgeted context block for a task.
type contextTool struct {
	client engram.Client
}

func newContextTool(client engram.Client) *contextTool {
	return &contextTool{client: client}
}

func (t *contextTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_context",
		mcp.WithDescription("Render the memories most relevant to a task into a compact context block, sized to a character budget. The block is plain text, ready to use as working context."),
		mcp.WithString("task",
			mcp.Description("The task or topic to select memories for. Without it the block contains no memories."),
		),
		mcp.WithNumber("budget",
			mcp.Description("Character budget for the block. Omit for the configured default."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of memories considered. Omit for the configured default."),
		),
	)
}

func (t *contextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task := req.GetString("task", "")
	budget := req.GetInt("budget", 0)
	limit := req.GetInt("limit", 0)

	result, err := t.client.Compress(ctx, task, budget, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := result.Text
	if result.Note != "" {
		text += "\nnote: " + result.Note
	}
	return mcp.NewToolResultText(text), nil
}

// deleteTool tombstones one memory by id.
type deleteTool struct {
	client engram.Client
}

func newDeleteTool(client engram.Client) *deleteTool {
	return &deleteTool{client: client}
}

func (t *deleteTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_delete",
		mcp.WithDescription("Soft-delete a memory by id. The record drops out of search and context but stays in the store until purged."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The memory id, as returned by memory_add or memory_search."),
		),
	)
}

func (t *deleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := t.client.Delete(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !result.Found {
		return mcp.NewToolResultText(fmt.Sprintf("No memory with id %s.", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted memory %s.", id)), nil
}

// purgeTool hard-deletes memories matching one criterion.
type purgeTool struct {
	client engram.Client
}

func newPurgeTool(client engram.Client) *purgeTool {
	return &purgeTool{client: client}
}

func (t *purgeTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_purge",
		mcp.WithDescription("Permanently remove memories matching exactly one criterion: id, tag, or contains. This cannot be undone; call with dry_run=true first to preview the matching set."),
		mcp.WithString("id",
			mcp.Description("Remove the single memory with this id."),
		),
		mcp.WithString("tag",
			mcp.Description("Remove every memory carrying this tag."),
		),
		mcp.WithString("contains",
			mcp.Description("Remove every memory whose text contains this substring, case-insensitively."),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Report what would be removed without touching the store."),
		),
	)
}

func (t *purgeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	criteria := mem.PurgeCriteria{
		ID:        req.GetString("id", ""),
		Tag:       req.GetString("tag", ""),
		Substring: req.GetString("contains", ""),
	}
	dryRun := req.GetBool("dry_run", false)

	result, err := t.client.Purge(ctx, criteria, dryRun)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

// exportTool dumps the whole collection.
type exportTool struct {
	client engram.Client
}

func newExportTool(client engram.Client) *exportTool {
	return &exportTool{client: client}
}

func (t *exportTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_export",
		mcp.WithDescription("Export the whole collection as canonical JSON, tombstones included. The output is exactly what the store file contains."),
	)
}

func (t *exportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := t.client.Export(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// statsTool reports collection counts.
type statsTool struct {
	client engram.Client
}

func newStatsTool(client engram.Client) *statsTool {
	return &statsTool{client: client}
}

func (t *statsTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_stats",
		mcp.WithDescription("Report collection counts and the tag histogram over active memories."),
	)
}

func (t *statsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := t.client.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(stats)
}
