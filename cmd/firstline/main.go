// firstline maintains the firstline index of satellite granules and
// inspects granules for overlap and outliers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/xtxerr/firstline/internal/errors"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		code := errors.ErrorToCode(err)
		fmt.Fprintf(os.Stderr, "firstline: %v (%s)\n", err, errors.CodeName(code))
		stop()
		os.Exit(code)
	}
}
