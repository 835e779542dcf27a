package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/routeplanner/internal/adapters/nats"
	"github.com/samirrijal/routeplanner/internal/adapters/postgres"
	"github.com/samirrijal/routeplanner/internal/adapters/valkey"
	"github.com/samirrijal/routeplanner/internal/core/domain"
	"github.com/samirrijal/routeplanner/internal/core/ports"
	"github.com/samirrijal/routeplanner/internal/core/usecases"
	"github.com/samirrijal/routeplanner/internal/pkg/config"
	"github.com/samirrijal/routeplanner/internal/pkg/logging"
	"github.com/samirrijal/routeplanner/internal/pkg/metrics"
	"github.com/samirrijal/routeplanner/internal/workflows"
)

func main() {
	cfg, err := config.Load("routeplanner-dispatcher")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format, "service", cfg.Telemetry.ServiceName)

	if cfg.Storage.Driver != "postgres" {
		log.Fatalf("dispatcher needs shared storage, storage.driver is %q", cfg.Storage.Driver)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache entries for a cancelled route must be invalidated like the API does.
	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache = vc
	}

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	routes := usecases.NewRouteService(postgres.NewRouteRepo(db), cache, pub)

	tc, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(logger),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer tc.Close()

	w := worker.New(tc, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.RouteDispatchWorkflow)
	w.RegisterActivity(&workflows.DispatchActivities{
		Routes:   routes,
		Notifier: natsadapter.NewNotifier(pub),
	})
	if err := w.Start(); err != nil {
		log.Fatalf("worker: %v", err)
	}
	defer w.Stop()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, "route-dispatcher")
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribeRoutePlanned(ctx, func(ctx context.Context, event *domain.RouteEvent) error {
		run, err := tc.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:                    workflows.WorkflowID(event.RouteID),
			TaskQueue:             cfg.Temporal.TaskQueue,
			WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		}, workflows.RouteDispatchWorkflow, workflows.InputFromEvent(event))
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			slog.Info("dispatch already handled", "route_id", event.RouteID)
			return nil
		}
		if err != nil {
			metrics.Dispatches.WithLabelValues("start_failed").Inc()
			return err
		}
		metrics.Dispatches.WithLabelValues("started").Inc()
		slog.Info("dispatch started", "route_id", event.RouteID, "workflow_id", run.GetID(), "run_id", run.GetRunID())
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	slog.Info("dispatcher started", "task_queue", cfg.Temporal.TaskQueue)
	<-ctx.Done()
	slog.Info("dispatcher stopping")
}
