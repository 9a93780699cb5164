// Command grallocctl allocates, maps and fills graphics buffers through a
// gralloc backend.
package main

import (
	"os"

	"github.com/gogpu/gralloc/cmd/grallocctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
