// Command bizdash drives the dashboard session core from a terminal: sign
// in, run GraphQL calls through the orchestrator, inspect routing and
// access decisions, or serve the built dashboard.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "bizdash: %v\n", err)
		os.Exit(1)
	}
}
