package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/enrell/boogle/cmd"
	"github.com/enrell/boogle/internal/config"
	"github.com/enrell/boogle/internal/logctx"
)

var (
	version  string
	commitID string
)

func main() {
	semver := fmt.Sprintf("%s+%s", version, commitID)

	if len(os.Args) < 2 {
		fmt.Println("usage: boogle <index|serve> [flags]")
		os.Exit(1)
	}

	subcommand := os.Args[1]
	if subcommand == "--version" {
		fmt.Println(semver)
		return
	}

	args := os.Args[2:]
	configPath, rest := extractConfigFlag(args)

	cfg, err := config.Load(configPath, rest)
	if err != nil {
		fmt.Fprintln(os.Stderr, "boogle: "+err.Error())
		os.Exit(1)
	}

	logger, err := logctx.New(cfg.Log.LogDir, cfg.Log.Verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "boogle: "+err.Error())
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("boogle starting", zap.String("version", semver), zap.String("command", subcommand))

	switch subcommand {
	case "index":
		err = cmd.Index(cfg, logger)
	case "serve":
		err = cmd.Serve(cfg, logger)
	default:
		fmt.Fprintf(os.Stderr, "boogle: unknown command %q\n", subcommand)
		os.Exit(1)
	}

	if err != nil {
		logger.Fatal("command failed", zap.Error(err))
	}
}

// extractConfigFlag pulls the first "-config <path>" pair out of args
// before the rest is handed to internal/flags, which only knows how to
// bind Config's own yaml-tagged fields.
func extractConfigFlag(args []string) (string, []string) {
	for i, a := range args {
		if a == "-config" || a == "--config" {
			if i+1 < len(args) {
				path := args[i+1]
				rest := append(append([]string{}, args[:i]...), args[i+2:]...)
				return path, rest
			}
		}
	}
	return "", args
}
