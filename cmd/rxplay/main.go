// Command rxplay runs the rxdrift playground headlessly and prints every
// frame that changes.
package main

import (
	"fmt"
	"os"

	"github.com/go-drift/rxdrift/cmd/rxplay/cmd"
)

func main() {
	if err := cmd.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
