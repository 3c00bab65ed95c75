package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/creditscope/internal/scorectl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := scorectl.Execute(ctx, os.Args)
	stop()
	os.Exit(code)
}
