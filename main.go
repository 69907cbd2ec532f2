package main

import (
	"os"

	"github.com/theapemachine/spiralmem/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
