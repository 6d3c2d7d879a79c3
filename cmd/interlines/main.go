// Command interlines turns dense source documents into public briefs. It runs
// the planned translation pipeline, and inspects recorded traces and past runs.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
