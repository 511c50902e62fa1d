// Command routc compiles IL source files to WebAssembly.
package main

import (
	"fmt"
	"os"

	"github.com/routlang/routc/cmd/routc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
