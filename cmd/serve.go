package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smartclass/attendance/internal/config"
	"github.com/smartclass/attendance/internal/database"
	"github.com/smartclass/attendance/internal/database/postgres"
	"github.com/smartclass/attendance/internal/extractor"
	"github.com/smartclass/attendance/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance web server",
	Long: `Start the attendance web server.
The server exposes the enrollment, live recognition, and reporting API that
the classroom frontend talks to. It needs a PostgreSQL database (with the
pgvector extension) and a running face feature extractor service.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies (defaults to random)")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")
	sessionSecret := mustGetString(cmd, "session-secret")

	if sessionSecret == "" {
		sessionSecret = os.Getenv("WEB_SESSION_SECRET")
	}
	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host, sessionSecret
}

// randomSecret generates a session secret for deployments that did not
// configure one. Sessions won't survive a restart in that case.
func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	return hex.EncodeToString(buf)
}

// buildDescriptorIndex loads all stored descriptors into the in-memory index
// used by the duplicate-enrollment check.
func buildDescriptorIndex(ctx context.Context, students *postgres.StudentRepository) *database.DescriptorIndex {
	index := database.NewDescriptorIndex()

	all, err := students.ListAll(ctx)
	if err != nil {
		fmt.Printf("Warning: failed to load descriptors: %v\n", err)
		fmt.Printf("Duplicate-enrollment warnings disabled until restart\n")
		return index
	}
	index.Build(all)
	fmt.Printf("Descriptor index built with %d descriptors\n", index.Count())
	return index
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	studentRepo := postgres.NewStudentRepository(pool)
	stores := web.Stores{
		Users:      postgres.NewUserRepository(pool),
		Students:   studentRepo,
		Subjects:   postgres.NewSubjectRepository(pool),
		Attendance: postgres.NewAttendanceRepository(pool),
	}
	sessionRepo := postgres.NewSessionRepository(pool)
	fmt.Printf("Session persistence enabled (PostgreSQL)\n")

	index := buildDescriptorIndex(context.Background(), studentRepo)

	extractorClient := extractor.NewClient(cfg.Extractor.URL, time.Duration(cfg.Extractor.Timeout)*time.Second)
	fmt.Printf("Using face extractor at %s\n", cfg.Extractor.URL)

	port, host, sessionSecret := resolveServeHostPort(cmd)
	if sessionSecret == "" {
		sessionSecret = randomSecret()
		fmt.Println("No session secret configured; sessions will not survive a restart")
	}

	server := web.NewServer(cfg, port, host, sessionSecret, sessionRepo, stores, extractorClient, index)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting attendance server on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
