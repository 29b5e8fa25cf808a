// Command authctl issues and inspects session tokens, generates signing keys
// and seeds accounts.
package main

import (
	"fmt"
	"os"

	"github.com/spec-kit/giftcard-platform/internal/cli/command"
)

func main() {
	if err := command.App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
