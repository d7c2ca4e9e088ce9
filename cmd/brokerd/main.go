package main

import (
	"os"

	"github.com/paulasmuth/brokerd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
