// The engram-shell command is an interactive front end for the local
// memory store.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/peterh/liner"

	"github.com/engramkit/engram/pkg/config"
	"github.com/engramkit/engram/pkg/engram"
	"github.com/engramkit/engram/pkg/log"
	"github.com/engramkit/engram/pkg/mem"
)

// Constants for the command-line interface
const (
	cmdHelp    = "!help"
	cmdQuit    = "!quit"
	cmdAdd     = "!add"
	cmdSearch  = "!search"
	cmdContext = "!context"
	cmdDelete  = "!delete"
	cmdPurge   = "!purge"
	cmdExport  = "!export"
	cmdStats   = "!stats"
)

// Command-line help text
const helpText = `
Engram Shell - Command Reference:
-----------------------------------------
!help                       - Show this help message
!add [#tag ...] <text>      - Store a memory; leading #tokens become tags
!search <query>             - Rank memories against a query
!context <task>             - Assemble a budgeted context block for a task
!delete <id>                - Soft-delete a memory by id
!purge [--dry-run] <match>  - Hard-delete memories; match is one of
                              id:<id>, tag:<tag>, text:<substring>
!export [path]              - Print the collection, or write it to a file
!stats                      - Show collection statistics
!quit                       - Exit the application

Notes:
- Regular text input is treated as a search query
- Tab completion is available for commands
- Use up/down arrows for command history`

// historyFile is the file where command history is stored
const historyFile = ".engram_history"

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file")
	storePath := flag.String("store", "", "Store file path override")
	stdinMode := flag.Bool("s", false, "Read from stdin and exit when complete")
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

	// Initialize logger
	log.Setup(log.Config{
		Level:  log.Level(cfg.Logging.Level),
		Format: log.Format(cfg.Logging.Format),
	})

	log.Info("Starting Engram shell")

	client, err := engram.NewFromConfig(cfg)
	if err != nil {
		log.Error("Failed to initialize Engram client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	// Start the command-line interface
	runCLI(client, cfg, *stdinMode)
}

// runCLI starts the command-line interface for user interaction
func runCLI(client *engram.Engram, cfg *config.Config, stdinMode bool) {
	// Different handling based on mode
	if stdinMode {
		// Use a scanner for direct stdin processing
		scanner := bufio.NewScanner(os.Stdin)

		printWelcome(client, cfg, true)

		// Process stdin lines
		for scanner.Scan() {
			input := strings.TrimSpace(scanner.Text())
			if input == "" {
				continue
			}

			// Skip comments and shebang lines for stdin-based testing
			if strings.HasPrefix(input, "#") || strings.HasPrefix(input, "//") {
				continue
			}

			// Echo a fake prompt for better output readability
			fmt.Print("engram> ", input, "\n")

			if input == cmdQuit {
				fmt.Println("Goodbye!")
				return
			}

			processCommand(input, client)
		}

		// Exit when stdin is complete
		if err := scanner.Err(); err != nil {
			fmt.Printf("Error reading stdin: %v\n", err)
		}
		fmt.Println("Goodbye!")
		return
	}

	// Interactive mode
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetMultiLineMode(false)

	// Set tab completion
	line.SetCompleter(func(line string) (c []string) {
		commands := []string{cmdHelp, cmdQuit, cmdAdd, cmdSearch, cmdContext, cmdDelete, cmdPurge, cmdExport, cmdStats}
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, line) {
				c = append(c, cmd)
			}
		}
		return
	})

	// Load history from file if it exists
	historyPath := resolveHistoryPath()
	if f, err := os.Open(historyPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	// Save history when exiting
	defer func() {
		if f, err := os.Create(historyPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	printWelcome(client, cfg, false)
	fmt.Println("Type !help for available commands.")

	// Main loop
	for {
		input, err := line.Prompt("engram> ")

		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nGoodbye!")
				break
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		// Skip empty input
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		// Add to history
		line.AppendHistory(input)

		// If quit command, break the loop
		if input == cmdQuit {
			fmt.Println("Goodbye!")
			break
		}

		processCommand(input, client)
	}
}

// printWelcome shows where this session reads and writes memories.
func printWelcome(client *engram.Engram, cfg *config.Config, stdinMode bool) {
	if stdinMode {
		fmt.Println("\n=== Engram Shell (stdin mode) ===")
	} else {
		fmt.Println("\n=== Engram Shell ===")
	}
	fmt.Println("Store:", client.StorePath())
	fmt.Println("Shaping:", cfg.Shaping.Provider)
	if cfg.Scripting.Enabled {
		fmt.Println("Lua hooks:", strings.Join(cfg.Scripting.Paths, ", "))
	}
}

// resolveHistoryPath places the history file in the home directory,
// falling back to the working directory.
func resolveHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return historyFile
	}
	return filepath.Join(home, historyFile)
}

// processCommand handles a single command line
func processCommand(input string, client *engram.Engram) {
	ctx := context.Background()

	if !strings.HasPrefix(input, "!") {
		// Treat bare input as a search query
		doSearch(ctx, client, input)
		return
	}

	parts := strings.SplitN(input, " ", 2)
	cmd := parts[0]
	rest := ""
	if len(parts) == 2 {
		rest = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case cmdHelp:
		fmt.Println(helpText)

	case cmdAdd:
		if rest == "" {
			fmt.Println("Memory text required")
			return
		}
		text, tags := parseAddInput(rest)
		record, err := client.Add(ctx, text, tags)
		if err != nil {
			fmt.Printf("Error storing memory: %v\n", err)
			return
		}
		fmt.Println("Stored memory with ID:", record.ID)

	case cmdSearch:
		if rest == "" {
			fmt.Println("Search query required")
			return
		}
		doSearch(ctx, client, rest)

	case cmdContext:
		result, err := client.Compress(ctx, rest, 0, 0)
		if err != nil {
			fmt.Printf("Error assembling context: %v\n", err)
			return
		}
		fmt.Print(result.Text)
		if result.Note != "" {
			fmt.Println("(note:", result.Note+")")
		}

	case cmdDelete:
		if rest == "" {
			fmt.Println("Memory id required")
			return
		}
		result, err := client.Delete(ctx, rest)
		if err != nil {
			fmt.Printf("Error deleting memory: %v\n", err)
			return
		}
		if !result.Found {
			fmt.Println("No memory with ID:", rest)
			return
		}
		fmt.Println("Deleted memory with ID:", rest)

	case cmdPurge:
		criteria, dryRun := parsePurgeInput(rest)
		result, err := client.Purge(ctx, criteria, dryRun)
		if err != nil {
			fmt.Printf("Error purging memories: %v\n", err)
			return
		}
		if result.DryRun {
			fmt.Printf("Would remove %d memories:\n", result.Count)
		} else {
			fmt.Printf("Removed %d memories:\n", result.Count)
		}
		for _, id := range result.IDs {
			fmt.Println("  " + id)
		}

	case cmdExport:
		data, err := client.Export(ctx)
		if err != nil {
			fmt.Printf("Error exporting memories: %v\n", err)
			return
		}
		if rest != "" {
			if err := os.WriteFile(rest, data, 0o644); err != nil {
				fmt.Printf("Error writing export: %v\n", err)
				return
			}
			fmt.Println("Exported to:", rest)
			return
		}
		os.Stdout.Write(data)

	case cmdStats:
		stats, err := client.Stats(ctx)
		if err != nil {
			fmt.Printf("Error computing stats: %v\n", err)
			return
		}
		fmt.Printf("Total: %d (%d active, %d deleted)\n", stats.Total, stats.Active, stats.Deleted)
		if len(stats.Tags) > 0 {
			tags := make([]string, 0, len(stats.Tags))
			for tag := range stats.Tags {
				tags = append(tags, tag)
			}
			sort.Strings(tags)
			fmt.Println("Tags:")
			for _, tag := range tags {
				fmt.Printf("  %s: %d\n", tag, stats.Tags[tag])
			}
		}

	default:
		fmt.Printf("Unknown command: %s\nType !help for available commands.\n", cmd)
	}
}

func doSearch(ctx context.Context, client *engram.Engram, query string) {
	hits, err := client.Search(ctx, query, 0)
	if err != nil {
		fmt.Printf("Error searching memories: %v\n", err)
		return
	}

	if len(hits) == 0 {
		fmt.Println("No memories found.")
		return
	}

	fmt.Printf("Found %d memories:\n", len(hits))
	for i, hit := range hits {
		tags := ""
		if len(hit.Record.Tags) > 0 {
			tags = " [" + strings.Join(hit.Record.Tags, ",") + "]"
		}
		fmt.Printf("%d. (%s)%s %s (score %.1f)\n", i+1, hit.Record.ID, tags, hit.Record.Text, hit.Score)
	}
}

// parseAddInput splits leading #tag tokens off the memory text, so
// "!add #infra #redis holds the cache" stores "holds the cache" with
// tags infra and redis.
func parseAddInput(input string) (string, []string) {
	tags := []string{}
	rest := strings.TrimSpace(input)

	for strings.HasPrefix(rest, "#") {
		head := rest
		if idx := strings.IndexAny(rest, " \t"); idx >= 0 {
			head = rest[:idx]
			rest = strings.TrimSpace(rest[idx:])
		} else {
			rest = ""
		}
		if tag := strings.TrimPrefix(head, "#"); tag != "" {
			tags = append(tags, tag)
		}
	}

	return rest, tags
}

// parsePurgeInput understands "[--dry-run] id:<id> | tag:<tag> |
// text:<substring>". The text form swallows the rest of the line so
// substrings may contain spaces. Anything unrecognized yields empty
// criteria, which the client rejects.
func parsePurgeInput(input string) (mem.PurgeCriteria, bool) {
	criteria := mem.PurgeCriteria{}
	rest := strings.TrimSpace(input)

	dryRun := false
	if strings.HasPrefix(rest, "--dry-run") {
		dryRun = true
		rest = strings.TrimSpace(strings.TrimPrefix(rest, "--dry-run"))
	}

	switch {
	case strings.HasPrefix(rest, "id:"):
		criteria.ID = strings.TrimSpace(strings.TrimPrefix(rest, "id:"))
	case strings.HasPrefix(rest, "tag:"):
		criteria.Tag = strings.TrimSpace(strings.TrimPrefix(rest, "tag:"))
	case strings.HasPrefix(rest, "text:"):
		criteria.Substring = strings.TrimSpace(strings.TrimPrefix(rest, "text:"))
	}

	return criteria, dryRun
}
