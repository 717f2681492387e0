package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/thesyncim/libgodatachannel/internal/signaling"
)

const shutdownTimeout = 5 * time.Second

// serve runs the signaling server until ctx is done.
func serve(ctx context.Context, logger *zap.Logger, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           signaling.NewServer(logger.Named("signaling")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("signaling server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
