// Command notifico-worker runs the pipeline engine: it consumes pipeline
// tasks from the configured queue (in-process or AMQP) and drives them
// through the engine's registered step plugins.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/notifico/notifico/internal/buildinfo"
	"github.com/notifico/notifico/internal/config"
	"github.com/notifico/notifico/internal/credential"
	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/engine/executor"
	"github.com/notifico/notifico/internal/engine/plugins/attachment"
	"github.com/notifico/notifico/internal/engine/plugins/core"
	"github.com/notifico/notifico/internal/engine/plugins/subscription"
	"github.com/notifico/notifico/internal/engine/plugins/templater"
	"github.com/notifico/notifico/internal/queue"
	"github.com/notifico/notifico/internal/queue/amqpqueue"
	"github.com/notifico/notifico/internal/queue/inproc"
	"github.com/notifico/notifico/internal/store/sqlite"
	"github.com/notifico/notifico/internal/transport"
	"github.com/notifico/notifico/internal/transport/gotify"
	"github.com/notifico/notifico/internal/transport/ntfy"
	"github.com/notifico/notifico/internal/transport/pushover"
	"github.com/notifico/notifico/internal/transport/slack"
	"github.com/notifico/notifico/internal/transport/smpp"
	"github.com/notifico/notifico/internal/transport/smtp"
	"github.com/notifico/notifico/internal/transport/telegram"
	"github.com/notifico/notifico/internal/transport/whatsapp"
	"github.com/notifico/notifico/internal/worker"
)

// shutdownGrace bounds how long in-flight tasks are given to finish once
// a shutdown signal arrives, per spec.md §5.
const shutdownGrace = 30 * time.Second

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

	if cfg.WeakSecret() {
		log.Warn("secret_key is using the insecure built-in default; set one in config")
	}

	log.Info("starting notifico-worker", "version", buildinfo.Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(cfg.DB)
	if err != nil {
		log.Error("failed to open reference store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	creds := credential.NewEnvStore()

	containerID := cfg.AMQP.Prefix + "-" + uuid.NewString()
	var pipelineQueue interface {
		queue.Sender
		queue.Receiver
	}
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
		log.Warn("amqp not configured, falling back to in-process queue (no crash durability)")
		pipelineQueue = inproc.New(4096)
	}

	eng := engine.New()
	eng.RegisterPlugin(core.New(store, pipelineQueue, log))
	eng.RegisterPlugin(templater.New(store, cfg.Templates.FileRoot))
	eng.RegisterPlugin(attachment.New(cfg.Transports.AllowFileAttachments))
	eng.RegisterPlugin(subscription.New(store, cfg.SecretKey, cfg.PublicURL))

	for _, t := range []transport.SimpleTransport{
		smtp.New(), smpp.New(), telegram.New(), whatsapp.New(),
		slack.New(), pushover.New(), gotify.New(), ntfy.New(),
	} {
		eng.RegisterPlugin(transport.Wrap(t, creds, nil, log))
	}

	exec := executor.New(eng, log)
	pool := worker.New(pipelineQueue, exec, 8, log)

	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, draining in-flight tasks", "grace", shutdownGrace)
	select {
	case <-done:
		log.Info("shutdown complete")
	case <-time.After(shutdownGrace):
		log.Warn("shutdown grace period exceeded, exiting anyway")
	}
}
