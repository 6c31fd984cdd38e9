// Package main is the entry point for the cofre CLI.
package main

import (
	"os"

	"github.com/rmontero/cofre/cmd/cofre/commands"
)

func main() {
	os.Exit(commands.Execute())
}
