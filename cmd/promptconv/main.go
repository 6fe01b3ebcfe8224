// Command promptconv converts stored prompt records into provider request
// parameters, lists their variables, generates typed variable structs, and
// serves conversions over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "promptconv:", err)
		os.Exit(1)
	}
}
