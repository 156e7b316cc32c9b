package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/TFMV/filerec/cmd"
)

func main() {
	os.Exit(run())
}

// run executes the CLI and maps its outcome to an exit status. Panics are
// reported with their stack instead of crashing mid-output.
func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "filerec: panic: %v\n%s", r, debug.Stack())
			code = 2
		}
	}()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
