// Package agent wires every broker component into a single running
// process: a Config struct, an ordered []func() error setup list, and
// an idempotent Shutdown guarded by a mutex.
package agent

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mensah-dev/brokerd/internal/admin"
	"github.com/mensah-dev/brokerd/internal/bufferpool"
	"github.com/mensah-dev/brokerd/internal/config"
	"github.com/mensah-dev/brokerd/internal/netsrv"
	"github.com/mensah-dev/brokerd/internal/protocol"
	"github.com/mensah-dev/brokerd/internal/store"
	"github.com/mensah-dev/brokerd/internal/telemetry"
	"github.com/mensah-dev/brokerd/internal/topic"
	"go.uber.org/zap"
)

// Agent owns every long-lived component of a broker process: the
// segmented log, the topic registry, the TCP protocol server and the
// admin HTTP server.
type Agent struct {
	Config config.Config

	log      *store.SegmentedLog
	registry *topic.Registry
	pool     *bufferpool.Pool
	handler  *protocol.Handler
	server   *netsrv.Server
	admin    *http.Server

	cancel context.CancelFunc

	shutdown     bool
	shutdowns    chan struct{}
	shutdownLock sync.Mutex
}

// New sets up and starts an agent from cfg. The returned agent is
// already serving traffic; callers should defer Shutdown.
func New(cfg config.Config) (*Agent, error) {
	a := &Agent{
		Config:    cfg,
		shutdowns: make(chan struct{}),
	}

	setup := []func() error{
		a.setupLogger,
		a.setupTelemetry,
		a.setupStore,
		a.setupTopicRegistry,
		a.setupProtocol,
		a.setupServer,
		a.setupAdmin,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupLogger() error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)
	return nil
}

func (a *Agent) setupTelemetry() error {
	return telemetry.Register()
}

func (a *Agent) setupStore() error {
	var err error
	a.log, err = store.New(a.Config.DataDir, store.Config{
		BaseName:      a.Config.BaseName,
		SegmentSize:   a.Config.SegmentSize,
		FlushInterval: a.Config.FlushInterval,
	})
	return err
}

func (a *Agent) setupTopicRegistry() error {
	a.registry = topic.New(store.StringLog{SegmentedLog: a.log})
	return nil
}

func (a *Agent) setupProtocol() error {
	a.handler = protocol.New(a.registry, store.StringLog{SegmentedLog: a.log})
	return nil
}

func (a *Agent) setupServer() error {
	a.pool = bufferpool.New(a.Config.BufferCount, a.Config.BufferSize)
	a.server = netsrv.New(a.Config.ListenAddr, a.pool, a.handler)

	if err := a.server.Listen(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan struct{})
	// Cancelling waits for Serve to return, so every connection goroutine
	// has exited before Shutdown closes the log.
	a.cancel = func() {
		cancel()
		<-served
	}

	go func() {
		defer close(served)
		if err := a.server.Serve(ctx); err != nil {
			zap.L().Named("agent").Error("protocol server stopped", zap.Error(err))
		}
	}()
	return nil
}

func (a *Agent) setupAdmin() error {
	a.admin = admin.NewHTTPServer(a.Config.AdminAddr, a.registry)

	ln, err := net.Listen("tcp", a.Config.AdminAddr)
	if err != nil {
		return err
	}

	go func() {
		if err := a.admin.Serve(ln); err != nil && err != http.ErrServerClosed {
			a.Shutdown()
		}
	}()
	return nil
}

// Shutdown stops every component exactly once.
func (a *Agent) Shutdown() error {
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true
	close(a.shutdowns)

	shutdown := []func() error{
		func() error {
			if a.cancel != nil {
				a.cancel()
			}
			return nil
		},
		func() error {
			if a.admin == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.admin.Shutdown(ctx)
		},
		func() error {
			if a.log == nil {
				return nil
			}
			return a.log.Close()
		},
	}

	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}
