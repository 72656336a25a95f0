package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pershin-daniil/icscal/internal/tokencli"
	"github.com/pershin-daniil/icscal/pkg/logger"
)

func main() {
	log := logger.New()
	logger.SetLevel(log, os.Getenv("LOG_LEVEL"))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := tokencli.NewRootCmd(log, os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
