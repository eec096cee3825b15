// Command iachat is the entry point for the Impact Analytics website chat
// widget backend. It provides a CLI (via Cobra) for running the HTTP API,
// rebuilding the knowledge base, and one-shot questions from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/shridharia/ia-chatbot/cmd/iachat/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
