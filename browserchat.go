package main

import (
	_ "embed"
	"fmt"
	"os"

	cli "github.com/neboloop/browserchat/cmd/browserchat"
	"github.com/neboloop/browserchat/internal/config"

	"github.com/joho/godotenv"
)

//go:embed etc/browserchat.yaml
var embeddedConfig []byte

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Load embedded config (defaults)
	c, err := config.LoadFromBytes(embeddedConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load embedded config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries progress and the reply, so errors go to stderr.
	if err := cli.SetupRootCmd(&c).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
