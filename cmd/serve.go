package main

import (
	"context"
	"encoding/json"
	"fmt"
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

	"github.com/BlendBerisha/businessscrapper/internal/model"
	"github.com/BlendBerisha/businessscrapper/internal/store"
	"github.com/BlendBerisha/businessscrapper/pkg/millionverifier"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for enqueueing jobs and verifying emails",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		verifierFor := func(apiKey string) millionverifier.Client {
			return millionverifier.NewClient(apiKey,
				millionverifier.WithBaseURL(cfg.MillionVerifier.BaseURL),
				millionverifier.WithTimeout(time.Duration(cfg.MillionVerifier.TimeoutMs)*time.Millisecond),
			)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(st, verifierFor),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// newRouter builds the API surface. verifierFor creates a verification
// client for the caller-supplied API key.
func newRouter(st store.Store, verifierFor func(apiKey string) millionverifier.Client) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/verify-email", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Email  string `json:"email"`
			APIKey string `json:"apiKey"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Email == "" || body.APIKey == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing email or API key"})
			return
		}

		result, err := verifierFor(body.APIKey).Verify(req.Context(), body.Email)
		if err != nil {
			zap.L().Error("verification proxy failed", zap.String("email", body.Email), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": fmt.Sprintf("Verification failed: %v", err),
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"email":      result.Email,
			"result":     result.Result,
			"quality":    result.Quality,
			"resultcode": result.ResultCode,
			"free":       result.Free,
			"role":       result.Role,
		})
	})

	r.Post("/api/jobs", func(w http.ResponseWriter, req *http.Request) {
		var params model.JobParams
		if err := json.NewDecoder(req.Body).Decode(&params); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if params.Country == "" || params.BusinessType == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "country and business type are required"})
			return
		}

		job, err := st.EnqueueJob(req.Context(), params)
		if err != nil {
			zap.L().Error("enqueue failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to enqueue job"})
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{
			"id":     job.ID,
			"status": string(job.Status),
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
