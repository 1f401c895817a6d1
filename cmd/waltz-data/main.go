// Command waltz-data runs operational tasks against the Waltz database:
// schema migrations, orphan cleanup and the background maintenance worker.
package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
