package main

import (
	"os"

	"daybook-ndjson-backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
