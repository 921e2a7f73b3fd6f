// Command careline is the entry point for the careline customer-support
// assistant. It provides a CLI interface (via Cobra) and an HTTP server
// exposing the chat, agent-assist, and knowledge management APIs.
package main

import (
	"fmt"
	"os"

	"github.com/careline/careline/cmd/careline/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
