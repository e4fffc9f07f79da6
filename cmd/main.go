package main

import (
	"context"
	"contribution-ledger/internal/app"
	"contribution-ledger/internal/config"
	"contribution-ledger/internal/engine"
	"contribution-ledger/internal/events"
	"contribution-ledger/internal/genesis"
	"contribution-ledger/internal/ports/http"
	"contribution-ledger/internal/repository/mongodb"
	"contribution-ledger/internal/state"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger, err := getLogger()
	if err != nil {
		log.Fatalln("setting up the logger failed: ", err)
		return
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Error("application failed: " + err.Error())
		os.Exit(1)
	}
	logger.Info("application finished")
}

func run(logger *zap.Logger) error {
	if err := config.Load(); err != nil {
		return err
	}
	logger.Info("application started")

	store, err := state.OpenBolt(logger, config.GetStatePath(), state.BoltOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close the state db: " + err.Error())
		}
	}()

	dispatcher := events.NewDispatcher(logger)
	defer func() {
		if err := dispatcher.Stop(); err != nil {
			logger.Error("failed to stop the event dispatcher: " + err.Error())
		}
	}()

	var archive app.Archive
	if uri := config.GetDbConnectionURI(); uri != "" {
		repo, err := mongodb.NewConnection(logger, uri, config.GetDatabaseName())
		if err != nil {
			return err
		}
		dispatcher.SetHandler(events.TypeAll, repo.Handler(config.GetRequestTimeout()))
		dispatcher.OnStop(repo.Disconnect)
		archive = repo
	} else {
		logger.Warn("no event archive configured")
	}

	eng := engine.New(logger, store, dispatcher)
	if err := bootstrap(logger, eng); err != nil {
		return err
	}

	application := app.NewApp(logger, eng, archive)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		application.Schedule(ctx, config.GetDistributionCheckInterval())
	}()
	// runs before the deferred dispatcher stop
	defer func() {
		stop()
		<-schedulerDone
	}()

	ser := http.NewServer(logger, application, config.GetPort(), http.Options{
		RequestTimeout: config.GetRequestTimeout(),
		RateLimit:      config.GetRateLimit(),
		RateBurst:      config.GetRateBurst(),
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- ser.Run()
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return ser.Shutdown(shutdownCtx)
}

// bootstrap initializes an empty state from the genesis file.
func bootstrap(logger *zap.Logger, eng *engine.Engine) error {
	initialized, err := eng.Initialized()
	if err != nil {
		return err
	}
	if initialized {
		head, err := eng.JournalHead()
		if err != nil {
			return err
		}
		logger.Info("state loaded", zap.Uint64("sequence", head.Sequence))
		return nil
	}

	doc, err := genesis.Load(config.GetGenesisFile())
	if err != nil {
		return err
	}
	if err := eng.Bootstrap(doc); err != nil {
		return err
	}
	logger.Info("state initialized from genesis", zap.Uint64("supply", doc.TotalSupply()))
	return nil
}

func getLogger() (*zap.Logger, error) {
	options := []zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(zap.FatalLevel),
	}

	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	config.Development = true
	config.Level.SetLevel(zap.DebugLevel)

	logger, err := config.Build()
	return logger.WithOptions(options...), err
}
