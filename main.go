package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/cropmanager/internal/auth"
	"github.com/example/cropmanager/internal/classifier"
	"github.com/example/cropmanager/internal/config"
	"github.com/example/cropmanager/internal/handlers"
	"github.com/example/cropmanager/internal/logging"
	"github.com/example/cropmanager/internal/store"
	"github.com/example/cropmanager/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger, err := logging.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	cfg := config.Load()

	st, err := store.Open(cfg.DataFile, logger)
	if err != nil {
		logger.Fatal("failed to open data file", zap.Error(err))
	}

	classes, err := classifier.LoadClasses(cfg.ClassesFile)
	if err != nil {
		logger.Warn("class list unavailable, labels will be placeholders", zap.Error(err))
		classes = []string{"Unknown"}
	}

	// Loading the artifact takes seconds; it runs in the background so the
	// interface paints immediately and reports progress via /health.
	loader := classifier.NewLoader(cfg.ModelPath, len(classes), logger)
	models := classifier.NewManager(loader.Load, classes, logger)
	models.Start()

	scans := usecase.NewScanService(models, st, logger)

	router := gin.Default()
	router.MaxMultipartMemory = handlers.MaxUploadSize

	h := handlers.NewHandler(st, scans, models, cfg.JWTSecret, logger)
	handlers.RegisterRoutes(router, h, auth.JWTMiddleware(cfg.JWTSecret))

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	logger.Info("crop manager listening",
		zap.String("addr", cfg.Addr),
		zap.String("model_path", cfg.ModelPath),
		zap.Int("classes", len(classes)))
	serveErr := serveHTTPServer(server, shutdownTimeout, logger)

	if err := st.Flush(); err != nil {
		logger.Error("final data flush failed", zap.Error(err))
	}
	if err := models.Close(); err != nil {
		logger.Error("failed to release classifier", zap.Error(err))
	}
	if serveErr != nil {
		logger.Fatal("server failed", zap.Error(serveErr))
	}
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var (
		sigCh       <-chan os.Signal
		stopSignals func()
	)

	if signalCh != nil {
		sigCh = signalCh
		stopSignals = func() {}
	} else {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sigCh = ch
		stopSignals = func() {
			signal.Stop(ch)
		}
	}
	defer stopSignals()

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
