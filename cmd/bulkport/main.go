// Command bulkport imports spreadsheets into the backend in concurrent, retried
// batches and exports records back to CSV.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/riveredge/bulkport/internal/cli"
	"github.com/riveredge/bulkport/pkg/version"
)

func main() {
	os.Exit(extractExitCode(run()))
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(version.GetVersion())
	return root.ExecuteContext(ctx)
}

// extractExitCode maps err to the process exit code: 0 for success, the carried
// code for import failures and 1 otherwise.
func extractExitCode(err error) int {
	if err == nil {
		return 0
	}
	var importErr *cli.ImportFailedError
	if errors.As(err, &importErr) {
		return importErr.ExitCode
	}
	return 1
}
