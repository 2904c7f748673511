package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	observercmd "github.com/louisbranch/gamestages/internal/cmd/observer"
)

func main() {
	cfg, err := observercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[OBSERVER] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := observercmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
