package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramkit/engram/pkg/engram"
	"github.com/engramkit/engram/pkg/mem"
	memmock "github.com/engramkit/engram/pkg/mem/adapters/mock"
	"github.com/engramkit/engram/pkg/search"
)

// setupToolTest creates a client over an in-memory store.
func setupToolTest(t *testing.T) (engram.Client, context.Context) {
	t.Helper()

	store := memmock.NewMockStore()
	client := engram.NewEngram(store, nil, nil, engram.DefaultConfig())
	return client, context.Background()
}

// newRequest builds a tool call request the way the stdio transport
// would after decoding JSON arguments.
func newRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	require.Len(t, result.Content, 1)
	content, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return content.Text
}

func TestNewServer(t *testing.T) {
	client, _ := setupToolTest(t)
	require.NotNil(t, newServer(client))
}

func TestAddTool(t *testing.T) {
	client, ctx := setupToolTest(t)
	tool := newAddTool(client)

	assert.Equal(t, "memory_add", tool.Definition().Name)

	result, err := tool.Handle(ctx, newRequest(map[string]interface{}{
		"text": "The staging database runs PostgreSQL 16",
		"tags": []interface{}{"Infra", "postgres"},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var record mem.MemoryRecord
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &record))
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "The staging database runs PostgreSQL 16", record.Text)
	assert.Equal(t, []string{"infra", "postgres"}, record.Tags)
	assert.Contains(t, record.Keywords, "staging")
}

func TestAddTool_MissingText(t *testing.T) {
	client, ctx := setupToolTest(t)
	tool := newAddTool(client)

	result, err := tool.Handle(ctx, newRequest(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "text")
}

func TestAddTool_EmptyText(t *testing.T) {
	client, ctx := setupToolTest(t)
	tool := newAddTool(client)

	result, err := tool.Handle(ctx, newRequest(map[string]interface{}{
		"text": "   \n\t  ",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "empty")
}

func TestSearchTool(t *testing.T) {
	client, ctx := setupToolTest(t)

	_, err := client.Add(ctx, "redis runs on port 6379", []string{"infra"})
	require.NoError(t, err)
	_, err = client.Add(ctx, "the deploy script lives in scripts/deploy.sh", []string{"ops"})
	require.NoError(t, err)

	tool := newSearchTool(client)
	assert.Equal(t, "memory_search", tool.Definition().Name)

	result, err := tool.Handle(ctx, newRequest(map[string]interface{}{
		"query": "redis",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var hits []search.Hit
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "redis runs on port 6379", hits[0].Record.Text)
	assert.Greater(t, hits[0].Score, 0.0)
}

func TestSearchTool_NoMatches(t *testing.T) {
	client, ctx := setupToolTest(t)

	_, err := client.Add(ctx, "redis runs on port 6379", []string{"infra"})
	require.NoError(t, err)

	tool := newSearchTool(client)
	result, err := tool.Handle(ctx, newRequest(map[string]interface{}{
		"query": "kubernetes",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "No memories matched the query.", resultText(t, result))
}

func TestSearchTool_MissingQuery(t *testing.T) {
	client, ctx := setupToolTest(t)
	tool := newSearchTool(client)

	result, err := tool.Handle(ctx, newRequest(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestSearchTool_Limit(t *testing.T) {
	client, ctx := setupToolTest(t)

	_, err := client.Add(ctx, "redis runs on port 6379", []string{"infra"})
	require.NoError(t, err)
	_, err = client.Add(ctx, "redis eviction policy is allkeys-lru", []string{"infra"})
	require.NoError(t, err)

	tool := newSearchTool(client)
	result, err := tool.Handle(ctx, newRequest(map[string]interface{}{
		"query": "redis",
		"limit": float64(1),
	}))
	require.NoError(t, err)

	var hits []search.Hit
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &hits))
	assert.Len(t, hits, 1)
}

func TestContextTool(t *testing.T) {
	client, ctx := setupToolTest(t)

	record, err := client.Add(ctx, "redis runs on port 6379", []string{"infra"})
	require.NoError(t, err)

	tool := newContextTool(client)
	assert.Equal(t, "memory_context", tool.Definition().Name)

	result, err := tool.Handle(ctx, newRequest(map[string]interface{}{
		"task":   "redis",
		"budget": float64(500),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.True(t, strings.HasPrefix(text, "Memory context\n\nRelevant memories for: redis\n"))
	assert.Contains(t, text, record.ID)
	assert.Contains(t, text, "redis runs on port 6379")
}

func TestContextTool_EmptyTask(t *testing.T) {
	client, ctx := setupToolTest(t)

	_, err := client.Add(ctx, "redis runs on port 6379", []string{"infra"})
	require.NoError(t, err)

	tool := newContextTool(client)
	result, err := tool.Handle(ctx, newRequest(map[string]interface{}{}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "Memory context\n\nRelevant memories:\n", resultText(t, result))
}

func TestDeleteTool(t *testing.T) {
	client, ctx := setupToolTest(t)

	record, err := client.Add(ctx, "temporary note", nil)
	require.NoError(t, err)

	tool := newDeleteTool(client)
	assert.Equal(t, "memory_delete", tool.Definition().Name)

	result, err := tool.Handle(ctx, newRequest(map[string]interface{}{
		"id": record.ID,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "Deleted memory "+record.ID+".", resultText(t, result))

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Deleted)
}

func TestDeleteTool_NotFound(t *testing.T) {
	client, ctx := setupToolTest(t)
	tool := newDeleteTool(client)

	result, err := tool.Handle(ctx, newRequest(map[string]interface{}{
		"id": "nope",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "No memory with id nope.", resultText(t, result))
}

func TestPurgeTool(t *testing.T) {
	client, ctx := setupToolTest(t)

	_, err := client.Add(ctx, "scratch one", []string{"tmp"})
	require.NoError(t, err)
	_, err = client.Add(ctx, "scratch two", []string{"tmp"})
	require.NoError(t, err)
	keep, err := client.Add(ctx, "the deploy key lives in vault", []string{"ops"})
	require.NoError(t, err)

	tool := newPurgeTool(client)
	assert.Equal(t, "memory_purge", tool.Definition().Name)

	// Dry run reports the matching set and leaves the store untouched.
	result, err := tool.Handle(ctx, newRequest(map[string]interface{}{
		"tag":     "tmp",
		"dry_run": true,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var purge mem.PurgeResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &purge))
	assert.Equal(t, 2, purge.Count)
	assert.True(t, purge.DryRun)

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)

	// The real purge removes them.
	result, err = tool.Handle(ctx, newRequest(map[string]interface{}{
		"tag": "tmp",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &purge))
	assert.Equal(t, 2, purge.Count)
	assert.False(t, purge.DryRun)

	stats, err = client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)

	hits, err := client.Search(ctx, "vault", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, keep.ID, hits[0].Record.ID)
}

func TestPurgeTool_NoCriteria(t *testing.T) {
	client, ctx := setupToolTest(t)
	tool := newPurgeTool(client)

	result, err := tool.Handle(ctx, newRequest(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "exactly one criterion")
}

func TestExportTool(t *testing.T) {
	client, ctx := setupToolTest(t)

	record, err := client.Add(ctx, "exported note", []string{"work"})
	require.NoError(t, err)
	_, err = client.Delete(ctx, record.ID)
	require.NoError(t, err)

	tool := newExportTool(client)
	assert.Equal(t, "memory_export", tool.Definition().Name)

	result, err := tool.Handle(ctx, newRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	// Tombstones are part of the export.
	var records []mem.MemoryRecord
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &records))
	require.Len(t, records, 1)
	assert.Equal(t, record.ID, records[0].ID)
	assert.NotNil(t, records[0].DeletedAt)
}

func TestStatsTool(t *testing.T) {
	client, ctx := setupToolTest(t)

	_, err := client.Add(ctx, "first note", []string{"work"})
	require.NoError(t, err)
	record, err := client.Add(ctx, "second note", []string{"work"})
	require.NoError(t, err)
	_, err = client.Delete(ctx, record.ID)
	require.NoError(t, err)

	tool := newStatsTool(client)
	assert.Equal(t, "memory_stats", tool.Definition().Name)

	result, err := tool.Handle(ctx, newRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var stats mem.Stats
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.Deleted)
	assert.Equal(t, map[string]int{"work": 1}, stats.Tags)
}
