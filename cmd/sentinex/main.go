package main

import (
	"os"

	"github.com/MiBe1991/sentinex/cmd/sentinex/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
