// Command server runs the screen seat reservation API and its operator
// commands.  Without arguments it behaves like "serve".
package main

import (
	"os"

	"github.com/iliyamo/screen-seat-reservation/internal/cli"
)

var version = "dev"

func main() {
	cli.Version = version
	root := cli.NewRootCommand()
	if len(os.Args) == 1 {
		root.SetArgs([]string{"serve"})
	}
	cli.Execute(root)
}
