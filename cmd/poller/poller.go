package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	log "github.com/freundallein/taskpoller/backend/chassis/logging"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/freundallein/taskpoller/backend/chassis/config"
	"github.com/freundallein/taskpoller/backend/chassis/metrics"
	"github.com/freundallein/taskpoller/backend/chassis/monkey"
	"github.com/freundallein/taskpoller/backend/chassis/queue"
	"github.com/freundallein/taskpoller/backend/chassis/storage"
	"github.com/freundallein/taskpoller/backend/dedup"
	"github.com/freundallein/taskpoller/backend/executor"
	"github.com/freundallein/taskpoller/backend/handler"
	"github.com/freundallein/taskpoller/backend/poller"
	"github.com/freundallein/taskpoller/backend/source"
	"github.com/freundallein/taskpoller/backend/supervisor"
	"github.com/freundallein/taskpoller/backend/task"
)

func main() {
	appCfg, err := config.Read()
	if err != nil {
		log.WithFields(log.Fields{
			"event": "config_read_failed",
		}).Fatal(err)
	}
	log.Init("poller", appCfg)
	log.WithFields(log.Fields{
		"event": "init_service",
	}).Info("service initialized")

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	collector := metrics.New(promRegistry)

	ctx, cancel := context.WithCancel(context.Background())

	var group sync.WaitGroup
	var recorders []handler.Recorder
	if appCfg.Storage.DSN != "" {
		repo, err := storage.InitPGRepository(ctx, storage.Config{DSN: appCfg.Storage.DSN})
		if err != nil {
			log.WithFields(log.Fields{
				"event": "init_storage_failed",
			}).Fatal(err)
		}
		defer repo.Close()
		if err := repo.Migrate(ctx); err != nil {
			log.WithFields(log.Fields{
				"event": "migrate_storage_failed",
			}).Fatal(err)
		}
		recorders = append(recorders, repo)
		supervisor.Run(ctx, &supervisor.Config{
			Repository: repo,
			Expiration: appCfg.Storage.Expiration,
			Period:     time.Duration(appCfg.Storage.CleanPeriod) * time.Second,
		}, &group)
	}
	if appCfg.Notify.Queue.Name != "" {
		queueCfg := queue.Config{
			Name:    appCfg.Notify.Queue.Name,
			URL:     appCfg.Notify.Queue.URL,
			Retries: appCfg.Notify.Queue.Retries,

			//AWS specific
			Region:             appCfg.AWS.Region,
			CredentialsFile:    appCfg.AWS.CredentialsFile,
			CredentialsProfile: appCfg.AWS.CredentialsProfile,
		}
		queueClient, err := queue.InitAWSQueue(queueCfg)
		if err != nil {
			log.WithFields(log.Fields{
				"event": "init_queue_failed",
			}).Fatal(err)
		}
		recorders = append(recorders, &handler.QueueRecorder{Queue: queueClient})
	}

	registry, err := buildRegistry(appCfg, recorders, collector)
	if err != nil {
		log.WithFields(log.Fields{
			"event": "init_handlers_failed",
		}).Fatal(err)
	}
	loop, err := poller.New(poller.Config{
		Source: source.NewHTTPClient(source.Config{
			URL:     appCfg.Source.URL,
			Timeout: time.Duration(appCfg.Source.Timeout) * time.Second,
		}),
		Registry:       registry,
		Interval:       appCfg.Interval(),
		BackoffInitial: time.Duration(appCfg.Poller.BackoffInitial) * time.Second,
		BackoffMax:     time.Duration(appCfg.Poller.BackoffMax) * time.Second,
		Monkey:         monkey.New(appCfg.Poller.ChaosRate),
		Metrics:        collector,
	})
	if err != nil {
		log.WithFields(log.Fields{
			"event": "init_poller_failed",
		}).Fatal(err)
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	group.Add(1)
	go func() {
		defer group.Done()
		_ = loop.Run(ctx)
	}()

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{
		Addr:    appCfg.Metrics.Addr,
		Handler: router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen: ", err)
		}
	}()
	<-done
	log.WithFields(log.Fields{
		"event": "ctx_cancel",
	}).Info("received syscall")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server Shutdown Failed: ", err)
	}
	group.Wait()
}

func buildRegistry(appCfg *config.AppConfig, recorders []handler.Recorder, collector *metrics.Collector) (*handler.Registry, error) {
	store := dedup.NewMemory(nil)
	runIDs := task.NewRunIDs(nil)
	launcher := executor.New(executor.Config{Dir: appCfg.Executor.ScriptsDir})
	registry := handler.NewRegistry()
	for _, tt := range appCfg.TaskTypes {
		deps := handler.Deps{
			TaskType:  tt.Name,
			Launcher:  launcher,
			RunIDs:    runIDs,
			TmpDir:    appCfg.Executor.TmpDir,
			Recorders: recorders,
			Metrics:   collector,
		}
		if tt.Dedup {
			store.Limit(tt.Name, dedup.Limits{
				Capacity: tt.DedupCapacity,
				TTL:      time.Duration(tt.DedupTTL) * time.Second,
			})
			deps.Dedup = store
		}
		h, err := handler.New(tt.Handler, deps)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(tt.Name, tt.Path, h); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
