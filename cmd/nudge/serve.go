package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc/pool"

	server "github.com/kazz187/nudge/internal"
	"github.com/kazz187/nudge/internal/api"
	"github.com/kazz187/nudge/internal/catalog"
	"github.com/kazz187/nudge/internal/clock"
	"github.com/kazz187/nudge/internal/command"
	"github.com/kazz187/nudge/internal/config"
	"github.com/kazz187/nudge/internal/eventbus"
	"github.com/kazz187/nudge/internal/line"
	"github.com/kazz187/nudge/internal/persistence"
	"github.com/kazz187/nudge/internal/pushnotification"
	pushsubrepo "github.com/kazz187/nudge/internal/pushsubscription/repositoryimpl"
	"github.com/kazz187/nudge/internal/reminder"
	"github.com/kazz187/nudge/internal/task"
	taskrepo "github.com/kazz187/nudge/internal/task/repositoryimpl"
	"github.com/kazz187/nudge/internal/timeparse"
	"github.com/kazz187/nudge/pkg/clog"
	"github.com/kazz187/nudge/pkg/storage"
)

const shutdownTimeout = 10 * time.Second

func setupLogger(env *config.Env) {
	level := clog.ParseLevel(env.LogLevel)
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))
}

func newStorage(ctx context.Context, env *config.StorageEnv) (storage.Storage, error) {
	switch env.Type {
	case "s3":
		return storage.NewS3Storage(ctx, env.S3Bucket, env.S3Prefix, env.S3Region)
	case "local":
		return storage.NewLocalStorage(env.BaseDir)
	default:
		slog.Warn("using in-memory storage, tasks are lost on restart")
		return storage.NewMemoryStorage(), nil
	}
}

func newCatalog(env *config.Env) (*catalog.Catalog, error) {
	loc, err := env.Location()
	if err != nil {
		return nil, err
	}
	if env.MessagesFile != "" {
		return catalog.Load(env.MessagesFile, loc)
	}
	return catalog.New(loc)
}

func runServe() error {
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	setupLogger(env)

	loc, err := env.Location()
	if err != nil {
		return err
	}
	msgs, err := newCatalog(env)
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	st, err := newStorage(ctx, &env.StorageEnv)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	snapshotRepo := taskrepo.NewYAMLRepository(st)
	pushSubRepo := pushsubrepo.NewYAMLRepository(st)

	bus := eventbus.New()
	store := task.NewStore(task.WithEventBus(bus))
	resolver := timeparse.NewResolver(loc, env.MinYear)

	var lineClient *line.Client
	if env.ChannelAccessToken != "" {
		lineClient = line.NewClient(env.ChannelAccessToken, line.WithAPIBase(env.LINEEnv.APIBase))
	}

	var notifier reminder.Notifier
	switch env.NotifyChannel {
	case config.ChannelLINE:
		notifier = lineClient
	case config.ChannelWebPush:
		notifier = pushnotification.NewSender(&env.VAPIDEnv, pushSubRepo)
	default:
		notifier = reminder.LogNotifier{}
	}
	slog.Info("reminder channel", "channel", env.NotifyChannel, "interval", env.EscalationInterval, "timezone", loc.String())

	sched := reminder.NewScheduler(store, notifier, msgs, reminder.WithInterval(env.EscalationInterval))
	router := command.NewRouter(store, sched, resolver, clock.Real())

	var webhook *line.Webhook
	var webhookHandler http.Handler
	if lineClient != nil && env.ChannelSecret != "" {
		webhook = line.NewWebhook(env.ChannelSecret, command.NewTextHandler(router, resolver, msgs), lineClient)
		webhookHandler = webhook
	}
	var pushServer api.PushNotificationServiceHandler
	if env.VAPIDEnv.Configured() {
		pushServer = pushnotification.NewServer(&env.VAPIDEnv, pushSubRepo)
	}

	syncer := persistence.NewSyncer(bus, store, snapshotRepo)
	if _, err := persistence.Restore(ctx, snapshotRepo, store, sched); err != nil {
		return fmt.Errorf("failed to restore tasks: %w", err)
	}

	srv := server.NewServer(env, webhookHandler, command.NewServer(router, resolver), pushServer, sched)

	// The syncer outlives the server so the final flush sees every change.
	syncCtx, stopSync := context.WithCancel(context.WithoutCancel(ctx))
	defer stopSync()

	p := pool.New().WithErrors()
	p.Go(func() error {
		syncer.Start(syncCtx)
		return nil
	})
	p.Go(func() error {
		if err := msgs.Watch(ctx); err != nil {
			slog.Warn("messages file not watched", "error", err)
		}
		return nil
	})
	p.Go(func() error {
		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			stop()
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	if webhook != nil {
		webhook.Wait()
	}
	sched.Stop()
	stopSync()

	return p.Wait()
}
