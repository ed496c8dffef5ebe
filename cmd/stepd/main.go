package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/steptracker/internal/api"
	"example.com/steptracker/internal/callback"
	"example.com/steptracker/internal/config"
	"example.com/steptracker/internal/dispatch"
	"example.com/steptracker/internal/domain"
	"example.com/steptracker/internal/eventbus"
	"example.com/steptracker/internal/persistence/memory"
	"example.com/steptracker/internal/persistence/postgres"
	"example.com/steptracker/internal/persistence/sqlite"
	"example.com/steptracker/internal/resident"
	"example.com/steptracker/internal/sensor"
	"example.com/steptracker/internal/service"
	"example.com/steptracker/internal/settings"
	"example.com/steptracker/internal/subscriber"
	"example.com/steptracker/internal/tracker"
	httptransport "example.com/steptracker/internal/transport/http"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open %s record store: %v", cfg.StoreDriver, err)
	}
	defer closeStore()

	registry := subscriber.NewRegistry()
	dispatcher := dispatch.NewDispatcher(cfg.DispatchQueueSize)
	go dispatcher.Start(ctx)

	steps := tracker.New(store, dispatch.NewStepNotifier(dispatcher, registry),
		tracker.WithLocation(loc),
		tracker.WithPersistInterval(cfg.PersistInterval),
	)

	// Local listeners share one slot in the remote registry.
	bus := eventbus.New()
	registry.Register(bus)

	prefs, err := settings.Open(cfg.SettingsPath)
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}
	policy := resident.NewPolicy(prefs, resident.NewLogPresenter(nil), steps)
	prefs.Subscribe(policy)
	bus.Register(eventbus.NewToken(), policy.OnStepUpdate)

	watcher, err := settings.NewWatcher(prefs, settings.DefaultDebounce)
	if err != nil {
		log.Fatalf("failed to create settings watcher: %v", err)
	}
	if err := watcher.Start(ctx); err != nil {
		log.Printf("settings changes will not be picked up: %v", err)
	}
	defer watcher.Stop()

	var sinks []io.Closer
	if len(cfg.KafkaBrokers) > 0 && cfg.StepUpdatesTopic != "" {
		sink := callback.NewKafkaHandle(cfg.KafkaBrokers, cfg.StepUpdatesTopic, "steps", cfg.CallbackTimeout)
		registry.Register(sink)
		sinks = append(sinks, sink)
		log.Printf("publishing step updates to kafka topic %s", cfg.StepUpdatesTopic)
	}
	if client := callback.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword); client != nil {
		sink := callback.NewRedisHandle(client, cfg.RedisChannel, cfg.CallbackTimeout)
		registry.Register(sink)
		sinks = append(sinks, sink)
		log.Printf("relaying step updates to redis channel %s", cfg.RedisChannel)
	}

	flusher, err := tracker.NewFlushScheduler(steps, cfg.FlushInterval)
	if err != nil {
		log.Fatalf("failed to create flush scheduler: %v", err)
	}
	flusher.Start()

	var wg sync.WaitGroup
	source := sensor.ReaderConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.SensorTopic, GroupID: cfg.ConsumerGroupID}
	if source.Available() {
		reader := sensor.NewKafkaReader(source)
		proc := sensor.NewProcessor(reader, steps)

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer reader.Close()

			log.Printf("sensor consumer started (topic=%s, group=%s)", source.Topic, source.GroupID)
			if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("sensor consumer stopped with error: %v", err)
			}
		}()
	} else {
		log.Printf("no step sensor configured; step count stays uninitialized")
	}

	svc := service.NewStepService(steps, registry)
	handler := api.NewHandler(svc, callback.NewWebhooks(cfg.CallbackTimeout, cfg.CallbackMaxFailures),
		api.WithSettings(prefs, policy),
		api.WithStreamWriteTimeout(cfg.CallbackTimeout),
	)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:     cfg.HTTPAddress,
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 60 * time.Second,
	}, logger(mux))
	server.RegisterOnShutdown(handler.CloseStreams)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdownCh
		log.Println("shutdown requested")
		cancel()
	}()

	if err := httptransport.Serve(ctx, server, 15*time.Second); err != nil {
		log.Printf("http server: %v", err)
		cancel()
	}

	wg.Wait()
	if err := flusher.Shutdown(); err != nil {
		log.Printf("flush scheduler shutdown: %v", err)
	}
	dispatcher.Wait()
	for _, sink := range sinks {
		if err := sink.Close(); err != nil {
			log.Printf("closing step update sink: %v", err)
		}
	}
}

func openStore(ctx context.Context, cfg config.Config) (domain.RecordStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		repo := postgres.NewRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, pool.Close, nil
	case config.StoreDriverSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Printf("closing sqlite store: %v", err)
			}
		}, nil
	default:
		log.Printf("using in-memory record store; step history is lost on restart")
		return memory.NewStore(), func() {}, nil
	}
}
