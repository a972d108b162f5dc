package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-kiosk/internal/config"
	"github.com/kozaktomas/face-kiosk/internal/directory"
	"github.com/kozaktomas/face-kiosk/internal/faceid"
	"github.com/kozaktomas/face-kiosk/internal/kiosk"
	"github.com/kozaktomas/face-kiosk/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the kiosk web server",
	Long: `Start the Face Kiosk web server.
The server runs migrations, builds the in-memory face index and serves
the registration, login and admin views.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (string, int) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return host, port
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	be, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer be.close()

	ctx := context.Background()

	engine := faceid.NewClient(cfg.Engine.URL, cfg.Engine.Threshold)

	classifier, err := faceid.NewClassifier(ctx, &cfg.Classifier)
	if err != nil {
		return fmt.Errorf("failed to create classifier: %w", err)
	}
	if classifier != nil {
		fmt.Printf("Attribute classification enabled (%s)\n", classifier.Name())
	}

	fmt.Println("Building in-memory face index...")
	index := directory.NewFaceIndex()
	if err := index.RebuildFromStore(ctx, be.store); err != nil {
		return fmt.Errorf("failed to build face index: %w", err)
	}
	fmt.Printf("Face index built with %d identities\n", index.Count())

	svc := kiosk.NewService(be.store, engine, classifier, index, kiosk.Options{
		ClassifyAttributes: cfg.Profile.ClassifyAttributes,
		Roles:              cfg.Profile.Roles,
	})

	host, port := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, host, port, svc, be.sessionRepo)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Kiosk on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
