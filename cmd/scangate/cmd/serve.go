package cmd

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

	"github.com/MeKo-Tech/scangate/internal/server"
	"github.com/MeKo-Tech/scangate/internal/version"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the acceptance API",
	Long: `Start an HTTP server that evaluates barcode detections for camera clients.

The server provides the following endpoints:
  GET  /health      - Health check endpoint
  GET  /formats     - Current format filter and the symbology table
  PUT  /formats     - Replace the format filter
  POST /evaluate    - Evaluate detections against a viewport
  POST /scan/image  - Decode and evaluate an uploaded image
  GET  /ws/scan     - WebSocket scanning session
  GET  /metrics     - Prometheus metrics

Examples:
  scangate serve
  scangate serve --port 8080
  scangate serve --host 0.0.0.0 --port 3000 --formats qrCode,ean13`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		host := cfg.Server.Host
		if cmd.Flags().Changed("host") {
			host, _ = cmd.Flags().GetString("host")
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		corsOrigin := cfg.Server.CORSOrigin
		if cmd.Flags().Changed("cors-origin") {
			corsOrigin, _ = cmd.Flags().GetString("cors-origin")
		}

		maxUploadSize := cfg.Server.MaxUploadMB
		if cmd.Flags().Changed("max-upload-size") {
			maxUploadSize, _ = cmd.Flags().GetInt("max-upload-size")
		}

		timeout := cfg.Server.TimeoutSec
		if cmd.Flags().Changed("timeout") {
			timeout, _ = cmd.Flags().GetInt("timeout")
		}

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if cmd.Flags().Changed("shutdown-timeout") {
			shutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
		}

		if cmd.Flags().Changed("formats") {
			list, _ := cmd.Flags().GetString("formats")
			cfg.Scanner.Formats = splitList(list)
		}
		filter, unrecognized := cfg.ToFormatFilter()
		if len(unrecognized) > 0 {
			slog.Warn("Ignoring unrecognized formats", "formats", unrecognized)
		}

		density := cfg.Scanner.Density
		if cmd.Flags().Changed("density") {
			density, _ = cmd.Flags().GetFloat64("density")
		}

		tryHarder := cfg.Scanner.TryHarder
		if cmd.Flags().Changed("try-harder") {
			tryHarder, _ = cmd.Flags().GetBool("try-harder")
		}

		maxImageSide, _ := cmd.Flags().GetInt("max-image-side")

		if port <= 0 || port > 65535 {
			return fmt.Errorf("invalid port: %d (must be between 1 and 65535)", port)
		}
		if maxUploadSize <= 0 {
			return fmt.Errorf("invalid max upload size: %d (must be positive)", maxUploadSize)
		}
		if timeout <= 0 {
			return fmt.Errorf("invalid timeout: %d (must be positive)", timeout)
		}
		if !(density > 0) {
			return fmt.Errorf("invalid density: %v (must be positive)", density)
		}

		serverConfig := server.Config{
			Host:         host,
			Port:         port,
			CORSOrigin:   corsOrigin,
			MaxUploadMB:  int64(maxUploadSize),
			TimeoutSec:   timeout,
			Formats:      filter.Names(),
			Convention:   cfg.CoordinateConvention(),
			Layout:       cfg.OverlayLayout(),
			Density:      density,
			TryHarder:    tryHarder,
			MaxImageSide: maxImageSide,
			Version:      version.Version,
		}

		scanServer, err := server.NewServer(serverConfig)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		mux := http.NewServeMux()
		scanServer.SetupRoutes(mux)

		addr := fmt.Sprintf("%s:%d", host, port)
		httpServer := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       time.Duration(timeout) * time.Second,
			WriteTimeout:      time.Duration(timeout) * time.Second,
		}

		slog.Info("Starting scangate server",
			"address", addr,
			"formats", scanServer.Engine().Filter().Names(),
			"density", density,
			"version", version.Version)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Server failed to start", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			slog.Info("Context cancelled, initiating shutdown")
		}

		slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
		if err := scanServer.Close(); err != nil {
			slog.Error("Server cleanup error", "error", err)
		}

		slog.Info("Graceful shutdown completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 20, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 30, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	// Acceptance policy
	serveCmd.Flags().String("formats", "", "comma-separated initial allow-list (default: all formats)")
	serveCmd.Flags().Float64("density", 1, "default display density for requests that omit it")
	serveCmd.Flags().Bool("try-harder", false, "spend more time decoding uploaded images")
	serveCmd.Flags().Int("max-image-side", 0, "downscale uploads whose longer side exceeds this (0 = no limit)")
}
