// Command licht-pages is an alias of licht-compile kept for projects that
// still invoke the pages entry point.
package main

import (
	"os"

	"github.com/licht-dev/licht-compile/cmd/licht-compile/commands"
)

func main() {
	os.Exit(commands.Execute("licht-pages", os.Args[1:]))
}
