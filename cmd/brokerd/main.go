// Command brokerd runs the topic-based message broker: the segmented
// log, the topic registry, the TCP protocol server and the admin HTTP
// diagnostics server, all wired together by internal/agent.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mensah-dev/brokerd/internal/agent"
	"github.com/mensah-dev/brokerd/internal/config"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	a, err := agent.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	if err := a.Shutdown(); err != nil {
		log.Fatal(err)
	}
}
