package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownGrace     = 10 * time.Second
)

// HTTPServer serves the auth routes and drains in-flight requests on stop.
type HTTPServer struct {
	Engine *gin.Engine
}

// NewHTTPServer wraps the router for lifecycle management.
func NewHTTPServer(router *gin.Engine) *HTTPServer {
	router.HandleMethodNotAllowed = true
	router.ForwardedByClientIP = true
	return &HTTPServer{Engine: router}
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully
// within shutdownGrace.
func (s *HTTPServer) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve %s: %w", addr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(drainCtx); err != nil {
			return fmt.Errorf("drain connections: %w", err)
		}
		return nil
	})

	return g.Wait()
}
