package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/yegors/live-facts/internal/api"
	"github.com/yegors/live-facts/internal/config"
	"github.com/yegors/live-facts/internal/session"
	"github.com/yegors/live-facts/internal/storage/sqlite"
	"github.com/yegors/live-facts/internal/transcription"
	"github.com/yegors/live-facts/internal/websocket"
	"github.com/yegors/live-facts/pkg/logger"
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		Long: `Run the live fact-checking server.

Clients start a session over HTTP or the /ws websocket, then either stream
audio (binary websocket frames, forwarded to Deepgram) or push transcript
fragments themselves. Statement events are broadcast to every websocket
client.`,
		Example: `  # Serve with configs/config.toml
  livefacts serve

  # Serve with an explicit config and debug logging
  livefacts serve --config ./my.toml --log-level debug`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("Starting livefacts server",
		logger.String("version", versionInfo.Version),
		logger.String("config_path", configPath),
	)

	// sigCtx ends on interrupt; ctx outlives it so the live session can be
	// flushed and journaled during shutdown
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checker, err := newChecker(ctx, cfg, log)
	if err != nil {
		return err
	}

	// Statement journal, one database per day
	var journal *sqlite.StatementStorage
	if cfg.Storage.Type == "sqlite" {
		dbPath := cfg.JournalPath(time.Now())
		db, err := sqlite.Open(dbPath, log)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer db.Close()

		journal, err = sqlite.NewStatementStorage(db, log)
		if err != nil {
			return err
		}
		log.Info("Statement journal ready", logger.String("path", dbPath))
	}

	// Create WebSocket server
	wsServer := websocket.NewServer(log)
	go wsServer.Run(ctx)

	deps := session.Deps{
		Checker:     checker,
		Broadcaster: wsServer,
	}
	if journal != nil {
		deps.Journal = journal
	}

	manager := session.NewManager(ctx, session.Config{
		QuietInterval:     cfg.QuietInterval(),
		HardCap:           cfg.HardCap(),
		KeepAliveInterval: cfg.KeepAliveInterval(),
		CheckTimeout:      cfg.CheckTimeout(),
	}, deps, newStreamOpener(cfg, log), log)

	socketHandler := session.NewSocketHandler(manager, log)
	wsServer.SetMessageHandler(socketHandler)
	wsServer.SetBinaryHandler(socketHandler)
	wsServer.SetConnectHandler(socketHandler.OnConnect)

	var journalReader api.JournalReader
	if journal != nil {
		journalReader = journal
	}
	handler := api.NewHandler(checker, manager, journalReader, wsServer, cfg, log)
	router := api.NewRouter(handler, cfg.Server.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-sigCtx.Done():
		log.Info("Shutting down server...")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	}

	// Flush the live session and let in-flight checks finish journaling
	closed := make(chan struct{})
	go func() {
		manager.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-shutdownCtx.Done():
		log.Warn("Timed out waiting for session to close")
	}
	cancel()

	log.Info("Server fully stopped")
	return nil
}

// newStreamOpener returns the Deepgram opener, or nil when clients push
// fragments themselves
func newStreamOpener(cfg *config.Config, log *logger.Logger) session.StreamOpener {
	if cfg.Transcription.Provider != "deepgram" {
		return nil
	}

	client := transcription.NewClient(transcription.Config{
		APIKey:           cfg.Transcription.DeepgramAPIKey,
		URL:              cfg.Transcription.URL,
		Model:            cfg.Transcription.Model,
		Language:         cfg.Transcription.Language,
		InterimResults:   cfg.Transcription.InterimResults,
		SmartFormat:      cfg.Transcription.SmartFormat,
		FillerWords:      cfg.Transcription.FillerWords,
		EndpointingMs:    cfg.Transcription.EndpointingMs,
		Keywords:         cfg.Transcription.Keywords,
		Encoding:         cfg.Transcription.Encoding,
		SampleRate:       cfg.Transcription.SampleRate,
		Channels:         cfg.Transcription.Channels,
		HandshakeTimeout: time.Duration(cfg.Transcription.HandshakeTimeoutSecs) * time.Second,
	}, log)

	return session.StreamOpenerFunc(func(ctx context.Context, h transcription.Handler) (session.Stream, error) {
		stream, err := client.Open(ctx, h)
		if err != nil {
			return nil, err
		}
		return stream, nil
	})
}
