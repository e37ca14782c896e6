package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/example/hexsettlers/internal/archive"
	"github.com/example/hexsettlers/internal/auth"
	"github.com/example/hexsettlers/internal/config"
	srv "github.com/example/hexsettlers/internal/server"
)

func main() {
	// Load environment variables from .env file if it exists
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		setupLogger("info", "console")
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogger(cfg.LogLevel, cfg.LogFormat)
	if cfg.InsecureSecret() {
		log.Warn().Msg("JWT_SECRET not set, using the development secret")
	}

	var arch srv.Archiver
	var archWriter *archive.Writer
	if cfg.ArchiveDir != "" {
		archWriter = archive.NewWriter(cfg.ArchiveDir)
		arch = archWriter
		log.Info().Str("dir", cfg.ArchiveDir).Msg("archiving finished games")
	}

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	gs := srv.NewGameServer(srv.Options{
		TurnTimeout:    cfg.TurnTimeout,
		BotDelay:       cfg.BotDelay,
		BotChainDelay:  cfg.BotChainDelay,
		LogSize:        cfg.LogSize,
		ChatSize:       cfg.ChatSize,
		IdleTimeout:    cfg.IdleTimeout,
		MessageRate:    cfg.MessageRate,
		MessageBurst:   cfg.MessageBurst,
		Room:           cfg.Room,
		AllowedOrigins: cfg.AllowedOrigins,
	}, issuer, arch)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.NewRouter(gs),
		ReadHeaderTimeout: 10 * time.Second,
	}
	tlsOn := cfg.TLSCert != "" && cfg.TLSKey != ""
	if tlsOn {
		server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Bool("tls", tlsOn).Msg("hexsettlers backend listening")
		var err error
		if tlsOn {
			err = server.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	eg.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		gs.Close()
		return server.Shutdown(shutdownCtx)
	})

	if err := eg.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
	if archWriter != nil {
		if err := archWriter.Close(); err != nil {
			log.Error().Err(err).Msg("close archive")
		}
	}
}

func setupLogger(level, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		return
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}
