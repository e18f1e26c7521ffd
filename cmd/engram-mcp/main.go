// The engram-mcp command serves the memory store to MCP clients over
// stdio. Every tool maps onto one client operation, so memories stored
// through a tool call are visible to the CLI and the shell, and the
// other way around.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/engramkit/engram/pkg/config"
	"github.com/engramkit/engram/pkg/engram"
	"github.com/engramkit/engram/pkg/log"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file")
	storePath := flag.String("store", "", "Store file path override")
	flag.Parse()

	// A .env next to the invocation is optional
	_ = godotenv.Load()

	// Load configuration
	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadFromFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *storePath != "" {
		cfg.Store.Path = *storePath
	}

	// Stdout carries the protocol; the logger writes to stderr.
	log.Setup(log.Config{
		Level:  log.Level(cfg.Logging.Level),
		Format: log.Format(cfg.Logging.Format),
	})

	client, err := engram.NewFromConfig(cfg)
	if err != nil {
		log.Error("Failed to initialize Engram client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	srv := newServer(client)

	log.Info("Starting Engram MCP server", "store_path", client.StorePath())
	if err := server.ServeStdio(srv); err != nil {
		log.Error("Server terminated", "error", err)
		os.Exit(1)
	}
}

// newServer creates the MCP server with every memory tool registered.
func newServer(client engram.Client) *server.MCPServer {
	s := server.NewMCPServer(
		"engram",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Capture ---

	addTool := newAddTool(client)
	s.AddTool(addTool.Definition(), addTool.Handle)

	// --- Retrieval ---

	searchTool := newSearchTool(client)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	contextTool := newContextTool(client)
	s.AddTool(contextTool.Definition(), contextTool.Handle)

	// --- Maintenance ---

	deleteTool := newDeleteTool(client)
	s.AddTool(deleteTool.Definition(), deleteTool.Handle)

	purgeTool := newPurgeTool(client)
	s.AddTool(purgeTool.Definition(), purgeTool.Handle)

	exportTool := newExportTool(client)
	s.AddTool(exportTool.Definition(), exportTool.Handle)

	statsTool := newStatsTool(client)
	s.AddTool(statsTool.Definition(), statsTool.Handle)

	return s
}

// serverInstructions returns the system instructions that tell the AI
// how to use the memory store effectively.
func serverInstructions() string {
	return `You have access to Engram, a local memory store for facts worth
keeping across sessions. Memories are short text notes with optional
tags, stored in a single JSON file on this machine. They survive
between conversations.

## Tools

- memory_add: store a short fact with optional tags
- memory_search: keyword search over stored memories, best match first
- memory_context: build a compact context block for a task, sized to a
  character budget
- memory_delete: soft-delete one memory by id; it drops out of search
  but stays in the file until purged
- memory_purge: permanently remove memories by id, tag, or text match;
  destructive, supports dry_run
- memory_export: dump the whole collection as JSON, tombstones included
- memory_stats: counts and the tag histogram

## When to Save

Call memory_add when the user states a durable preference, a decision
is made, or you discover something about the environment worth keeping
(ports, paths, conventions, gotchas). Keep each memory to one or two
sentences and tag it ("infra", "preference", "decision"). Do not save
secrets or conversation filler.

## When to Recall

At the start of a session, call memory_context with a short task
description to get a compact briefing. Use memory_search when you need
something specific. Search is keyword based: query with the words that
would appear in the memory, not with full questions.

## Maintenance

Prefer memory_delete over memory_purge; a purge cannot be undone.
Always call memory_purge with dry_run=true first and review the
matching ids before executing. memory_purge takes exactly one of id,
tag, or contains per call.`
}
