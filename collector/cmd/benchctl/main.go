// Command benchctl turns benchmark tool output into github-action-benchmark
// data.js history, compares runs, and pushes entries to a benchboard server.
package main

import (
	"errors"
	"fmt"
	"os"
)

var exit = os.Exit

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		exit(1)
	}
}
