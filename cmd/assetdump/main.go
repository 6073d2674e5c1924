// Command assetdump inspects and extracts game asset archives, chunk scenes
// and collision grids.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errFailures) {
			fmt.Fprintln(os.Stderr, "assetdump:", err)
		}
		os.Exit(1)
	}
}
