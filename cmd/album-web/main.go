package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/album-studio/internal/auth"
	"github.com/fpang/album-studio/internal/config"
	"github.com/fpang/album-studio/internal/generate"
	"github.com/fpang/album-studio/internal/history"
	"github.com/fpang/album-studio/internal/logging"
	"github.com/fpang/album-studio/internal/session"
)

//go:embed all:frontend_dist
var frontendFS embed.FS

// CLI flags
var (
	portFlag   int
	modelFlag  string
	configFlag string
)

// Shared server state, initialized in runMain.
var (
	cfg          *config.Config
	sessions     *session.Manager
	orchestrator *generate.Orchestrator
	albums       *history.Store
	albumDir     string
)

var rootCmd = &cobra.Command{
	Use:   "album-web",
	Short: "Web UI for building AI vibe albums",
	Long: `Album Web starts a local web server for building styled photo albums.
Upload subject photos and vibe reference photos, crop them, generate a batch
of looks with Gemini, and compose the results into a downloadable collage.

Examples:
  album-web
  album-web --port 9090
  album-web --model gemini-2.5-flash-image`,
	Run: runMain,
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a sample config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFlag
		if path == "" {
			path = config.DefaultPath()
		}
		if err := config.WriteSample(path); err != nil {
			return err
		}
		fmt.Printf("Wrote sample config to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to config file (default ~/.album-studio/config.toml)")
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini image model to use (overrides config)")
	rootCmd.AddCommand(initConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()

	configPath := configFlag
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	loaded, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	cfg = loaded
	if portFlag != 0 {
		cfg.Server.Port = portFlag
	}
	if modelFlag != "" {
		cfg.Gemini.Model = modelFlag
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare data directory")
	}

	// Validate API key at startup
	apiKey, err := auth.GetAPIKey()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get API key")
	}

	ctx := context.Background()
	client, err := generate.NewGeminiClient(ctx, apiKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}
	if err := auth.ValidateAPIKey(ctx, client); err != nil {
		log.Fatal().Err(err).Msg("Invalid API key")
	}
	log.Info().Msg("API key validated")

	sessions = session.NewManager(session.Limits{
		SubjectMax: cfg.Limits.SubjectMax,
		VibeMax:    cfg.Limits.VibeMax,
		BatchMax:   cfg.Limits.BatchMax,
	})
	orchestrator = generate.NewOrchestrator(generate.NewGeminiGenerator(client, cfg.Gemini.Model))

	albumDir = filepath.Join(cfg.Server.DataDir, "albums")
	if err := os.MkdirAll(albumDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare album directory")
	}
	albums, err = history.Open(cfg.Server.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open album history")
	}
	defer albums.Close()

	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/api/session", handleSessionCreate)
	mux.HandleFunc("/api/state", handleState)
	mux.HandleFunc("/api/reset", handleReset)
	mux.HandleFunc("/api/instructions", handleInstructions)
	mux.HandleFunc("/api/photos/upload", handleUpload)
	mux.HandleFunc("/api/photos/paste", handlePaste)
	mux.HandleFunc("/api/photos/paste/assign", handlePasteAssign)
	mux.HandleFunc("/api/photos/paste/cancel", handlePasteCancel)
	mux.HandleFunc("/api/photos/remove", handlePhotoRemove)
	mux.HandleFunc("/api/photos/thumbnail", handlePhotoThumbnail)
	mux.HandleFunc("/api/crop/head", handleCropHead)
	mux.HandleFunc("/api/crop/confirm", handleCropConfirm)
	mux.HandleFunc("/api/crop/skip", handleCropSkip)
	mux.HandleFunc("/api/generate/start", handleGenerateStart)
	mux.HandleFunc("/api/generate/regenerate", handleRegenerate)
	mux.HandleFunc("/api/slot/image", handleSlotImage)
	mux.HandleFunc("/api/album/compose", handleAlbumCompose)
	mux.HandleFunc("/api/album/download", handleAlbumDownload)
	mux.HandleFunc("/api/album/zip", handleAlbumZip)
	mux.HandleFunc("/api/albums", handleAlbumList)

	// Frontend static files (SPA fallback)
	frontendSub, err := fs.Sub(frontendFS, "frontend_dist")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to access embedded frontend")
	}
	fileServer := http.FileServer(http.FS(frontendSub))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Security headers
		w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' blob: data:; style-src 'self' 'unsafe-inline'; connect-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// SPA fallback: if the file doesn't exist, serve index.html
		path := r.URL.Path
		if path != "/" {
			f, err := frontendSub.Open(strings.TrimPrefix(path, "/"))
			if err != nil {
				r.URL.Path = "/"
			} else {
				f.Close()
			}
		}
		fileServer.ServeHTTP(w, r)
	})

	// Wrap with logging and CORS for local dev
	handler := withLogging(withCORS(mux))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Int("port", cfg.Server.Port).Msg("Starting web server")
	fmt.Printf("\n  Album Studio: http://localhost:%d\n\n", cfg.Server.Port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// --- Middleware ---

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if strings.HasPrefix(r.URL.Path, "/api/") {
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("API request")
		}
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only allow localhost origins
		origin := r.Header.Get("Origin")
		if origin != "" && (strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
