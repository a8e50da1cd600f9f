package main

import (
	"os"

	"github.com/MimeLyc/contextual-comic-translator/cmd/comicctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
