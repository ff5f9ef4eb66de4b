package main

import (
	"os"

	"symbolicator/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
