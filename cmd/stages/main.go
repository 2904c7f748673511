package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	stagescmd "github.com/louisbranch/gamestages/internal/cmd/stages"
)

func main() {
	cfg, err := stagescmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[STAGES] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := stagescmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
