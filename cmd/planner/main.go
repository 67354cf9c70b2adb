package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/J-ANet/prototipo/internal/cli"
	"github.com/J-ANet/prototipo/internal/logger"
	"github.com/J-ANet/prototipo/internal/planner"
)

func main() {
	if err := run(); err != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	log := logger.New("planner")
	app := &cli.App{
		Runner: planner.NewRunner(log),
		Log:    log,
	}
	return cli.NewRootCmd(app).Execute()
}
