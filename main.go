// darkwing supervises a single OCI container through a low-level runtime
// like runc: create/start/run its lifecycle, pump its stdio, and forward
// signals like a small init process.
package main

import (
	"fmt"
	"os"

	"darkwing/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
