package main

import (
	"fmt"
	"os"

	"bishop-bot/internal/config"
	"bishop-bot/internal/logging"
)

func main() {
	cfg, _ := config.Load()
	if _, err := logging.Setup("warn", ""); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
