// Command studiobellctl runs the one-shot maintenance tasks: schema
// migrations, the daily retention sweep, topic setup and offline evaluation.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
