package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dunglechi/vnpt-talent-hub-sub002/cmd/internal/ctl"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := ctl.Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}
