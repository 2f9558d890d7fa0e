package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	pkg "github.com/nocturnehq/nocturne/pkg/internal"
	"github.com/nocturnehq/nocturne/pkg/internal/cache"
	"github.com/nocturnehq/nocturne/pkg/internal/database"
	"github.com/nocturnehq/nocturne/pkg/internal/http"
	"github.com/nocturnehq/nocturne/pkg/internal/http/api"
	"github.com/nocturnehq/nocturne/pkg/internal/nostr"
	"github.com/nocturnehq/nocturne/pkg/internal/services"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Booting screen
	fmt.Println(color.MagentaString(" _   _            _\n| \\ | | ___   ___| |_ _   _ _ __ _ __   ___\n|  \\| |/ _ \\ / __| __| | | | '__| '_ \\ / _ \\\n| |\\  | (_) | (__| |_| |_| | |  | | | |  __/\n|_| \\_|\\___/ \\___|\\__|\\__,_|_|  |_| |_|\\___|"))
	fmt.Printf("%s v%s\n", color.New(color.FgHiMagenta).Add(color.Bold).Sprintf(pkg.AppName), pkg.AppVersion)
	fmt.Printf("The headless engine behind your relay-native social client\n")
	color.HiBlack("=====================================================\n")

	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	// Connect to database
	if err := database.NewGorm(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connect to database.")
	} else if err := database.RunMigration(database.C); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	// Initialize cache
	if err := cache.NewStore(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when initializing cache.")
	}

	// Load keypair
	signer, err := nostr.NewSigner(viper.GetString("security.private_key"))
	if err != nil {
		log.Fatal().Err(err).Msg("An error occurred when loading signing key.")
	}
	log.Info().Str("pubkey", signer.PubKey()).Msg("Signing identity loaded.")

	// Connect to relays
	pool := nostr.NewRelayPool(signer, viper.GetStringSlice("relays"))

	// Build the session
	kv := database.NewKvStore(database.C)
	session := services.NewSession(
		pool,
		kv,
		kv,
		cache.S,
		signer.PubKey(),
		viper.GetInt("retention.max_events"),
	)
	if err := session.Bootstrap(context.Background()); err != nil {
		log.Error().Err(err).Msg("An error occurred when bootstrapping session. Serving from local state only.")
	}
	api.Session = session

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	quartz.AddFunc("@every 15m", session.Cleanup)
	quartz.AddFunc("@every 5m", func() {
		if err := session.RefreshInteractions(context.Background()); err != nil {
			log.Warn().Err(err).Msg("An error occurred when refreshing interaction counts.")
		}
	})
	quartz.Start()

	// Server
	go http.NewServer().Listen()

	// Messages
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	quartz.Stop()
	session.Shutdown()
	pool.Close()
}
