package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ppiankov/fieldscout/internal/cli"
)

// version is set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cli.Version = version
	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
