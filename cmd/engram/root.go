// The engram command is a one-shot CLI for the local memory store.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/engramkit/engram/pkg/config"
	"github.com/engramkit/engram/pkg/engram"
	"github.com/engramkit/engram/pkg/log"
)

var (
	configPath string
	storePath  string
	jsonOut    bool
	quiet      bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "engram",
	Short: "Local memory for agents and scripts",
	Long:  "A small CLI for a local memory store. Text in, text out. Single JSON file, single binary.",
}

func init() {
	cobra.OnInitialize(initApp)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "Store file path (default: $ENGRAM_STORE_PATH or ~/.engram/memories.json)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
}

// initApp runs after flag parsing and before any command.
func initApp() {
	// A .env next to the invocation is optional
	_ = godotenv.Load()

	loaded, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	cfg = loaded

	level := log.Level(cfg.Logging.Level)
	if quiet {
		level = log.ErrorLevel
	}
	log.Setup(log.Config{
		Level:  level,
		Format: log.Format(cfg.Logging.Format),
	})
}

func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// The --store flag wins over config file and environment
	if storePath != "" {
		cfg.Store.Path = storePath
	}

	return cfg, nil
}

func newClient() *engram.Engram {
	client, err := engram.NewFromConfig(cfg)
	if err != nil {
		exitErr("initialize client", err)
	}
	return client
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

func printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}
