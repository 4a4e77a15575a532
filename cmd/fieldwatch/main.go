package main

import (
	"os"

	"github.com/light-bringer/fieldwatch/internal/cli"
	"github.com/light-bringer/fieldwatch/internal/pkg/logging"
)

func main() {
	err := cli.NewRootCommand().Execute()
	_ = logging.Shutdown()
	if err != nil {
		os.Exit(1)
	}
}
