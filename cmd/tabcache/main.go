// Command tabcache exports tabular records as CSV, JSON or MessagePack and
// reuses earlier serializations of identical content.
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
