// ABOUTME: Entry point for the advisor CRM command line
// ABOUTME: Runs the cobra command tree with a cancellable context
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/harperreed/advisor-crm/cli"
)

const version = "0.2.0"

func main() {
	if err := cli.NewRootCommand(version).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
