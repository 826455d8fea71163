// Command notifico-ingest runs notifico's three HTTP surfaces: the
// event-trigger ingest API, the tenant-management admin REST API, and the
// public list-unsubscribe callback. All three are read/write-light and
// share the reference store, so they run as one process with three
// independently configured listeners, per spec.md §6.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/notifico/notifico/internal/apikey"
	"github.com/notifico/notifico/internal/buildinfo"
	"github.com/notifico/notifico/internal/config"
	"github.com/notifico/notifico/internal/event"
	"github.com/notifico/notifico/internal/httpapi/admin"
	"github.com/notifico/notifico/internal/httpapi/public"
	"github.com/notifico/notifico/internal/ingest"
	"github.com/notifico/notifico/internal/queue"
	"github.com/notifico/notifico/internal/queue/amqpqueue"
	"github.com/notifico/notifico/internal/queue/inproc"
	"github.com/notifico/notifico/internal/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	path, err := config.FindConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
	slog.SetDefault(log)

	log.Info("starting notifico-ingest", "version", buildinfo.Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(cfg.DB)
	if err != nil {
		log.Error("failed to open reference store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	containerID := cfg.AMQP.Prefix + "-" + uuid.NewString()
	var pipelineQueue queue.Sender
	if cfg.AMQP.Configured() {
		conn, err := amqpqueue.NewConnection(ctx, cfg.AMQP.URL, containerID, log)
		if err != nil {
			log.Error("failed to connect to AMQP broker", "error", err)
			os.Exit(1)
		}
		defer conn.Close()
		q, err := amqpqueue.Declare(conn, cfg.AMQP.Prefix+"pipelines")
		if err != nil {
			log.Error("failed to declare pipeline queue", "error", err)
			os.Exit(1)
		}
		pipelineQueue = q
	} else {
		log.Warn("amqp not configured, falling back to in-process queue")
		pipelineQueue = inproc.New(4096)
	}

	handler := event.New(store, pipelineQueue, log)
	auth := apikey.New(func(ctx context.Context, key string) (uuid.UUID, error) {
		return store.ResolveAPIKey(ctx, key)
	})

	ingestMux := http.NewServeMux()
	ingest.New(handler, auth, log).RegisterRoutes(ingestMux)

	adminMux := http.NewServeMux()
	admin.New(store, log).RegisterRoutes(adminMux)

	publicMux := http.NewServeMux()
	public.New(store, cfg.SecretKey, log).RegisterRoutes(publicMux)

	servers := []struct {
		name string
		addr string
		mux  *http.ServeMux
	}{
		{"ingest", fmt.Sprintf("%s:%d", cfg.Ingest.Address, cfg.Ingest.Port), ingestMux},
		{"admin", fmt.Sprintf("%s:%d", cfg.Admin.Address, cfg.Admin.Port), adminMux},
		{"public", fmt.Sprintf("%s:%d", cfg.Public.Address, cfg.Public.Port), publicMux},
	}

	var wg sync.WaitGroup
	for _, srv := range servers {
		httpServer := &http.Server{Addr: srv.addr, Handler: srv.mux}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
		}()

		wg.Add(1)
		go func(name, addr string) {
			defer wg.Done()
			log.Info("listening", "surface", name, "addr", addr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("http surface stopped", "surface", name, "error", err)
			}
		}(srv.name, srv.addr)
	}

	wg.Wait()
}
