package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/visapath/i20-processor/internal/event"
	"github.com/visapath/i20-processor/internal/model"
	"github.com/visapath/i20-processor/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the event server",
	Long:  "Accepts object-created notifications, processes documents asynchronously, and serves document status.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/events", func(w http.ResponseWriter, req *http.Request) {
			body, err := io.ReadAll(req.Body)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
				return
			}

			evt, err := event.Parse(body)
			if err != nil {
				zap.L().Warn("rejected event", zap.Error(err))
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event"})
				return
			}

			if _, err := env.Store.CreateDocument(req.Context(), evt.UserID, evt.DocumentID, evt.Location); err != nil {
				zap.L().Error("create document failed",
					zap.String("document_id", evt.DocumentID),
					zap.Error(err),
				)
				writeJSON(w, http.StatusInternalServerError, errorBody("could not register document", err))
				return
			}

			// Process asynchronously; status lands in the store. A panic in
			// the pipeline still leaves a terminal failed status behind.
			go func() {
				defer func() {
					if r := recover(); r != nil {
						zap.L().Error("processing panicked",
							zap.String("document_id", evt.DocumentID),
							zap.Any("panic", r),
						)
						_ = env.Store.UpdateStatus(ctx, evt.UserID, evt.DocumentID, model.StatusUpdate{
							Status: model.StatusFailed,
							Stage:  model.StageError,
							Error:  "Internal processing error",
						})
					}
				}()

				outcome := env.Processor.Process(ctx, evt.UserID, evt.DocumentID, evt.Location)
				zap.L().Info("async processing finished",
					zap.String("document_id", evt.DocumentID),
					zap.String("status", string(outcome.Status())),
				)
			}()

			writeJSON(w, http.StatusAccepted, map[string]string{
				"status":      "accepted",
				"document_id": evt.DocumentID,
			})
		})

		r.Get("/documents/{userID}/{documentID}", func(w http.ResponseWriter, req *http.Request) {
			userID := chi.URLParam(req, "userID")
			documentID := chi.URLParam(req, "documentID")

			rec, err := env.Store.GetDocument(req.Context(), userID, documentID)
			if errors.Is(err, store.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
				return
			}
			if err != nil {
				zap.L().Error("get document failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, errorBody("lookup failed", err))
				return
			}

			writeJSON(w, http.StatusOK, rec)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			gracefulShutdown(srv, 10*time.Second)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// gracefulShutdown drains in-flight requests under its own deadline. The
// signal context is already cancelled by the time shutdown starts, so it
// cannot be reused here.
func gracefulShutdown(srv *http.Server, timeout time.Duration) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("server shutdown", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody hides internal error detail outside the dev environment.
func errorBody(msg string, err error) map[string]string {
	body := map[string]string{"error": msg}
	if cfg.Environment == "dev" && err != nil {
		body["detail"] = err.Error()
	}
	return body
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
