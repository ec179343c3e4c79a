package main

import (
	"os"

	"github.com/licht-dev/licht-compile/cmd/licht-compile/commands"
)

func main() {
	os.Exit(commands.Execute("licht-compile", os.Args[1:]))
}
