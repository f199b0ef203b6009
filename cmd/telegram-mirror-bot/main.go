package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-mirror-bot/internal/bot"
	"telegram-mirror-bot/internal/config"
	"telegram-mirror-bot/internal/database"
	"telegram-mirror-bot/internal/dispatch"
	"telegram-mirror-bot/internal/engine"
	"telegram-mirror-bot/internal/engine/directengine"
	"telegram-mirror-bot/internal/engine/driveengine"
	"telegram-mirror-bot/internal/engine/megaengine"
	"telegram-mirror-bot/internal/engine/rcloneengine"
	"telegram-mirror-bot/internal/engine/telegramengine"
	"telegram-mirror-bot/internal/engine/torrentengine"
	"telegram-mirror-bot/internal/engine/videoengine"
	"telegram-mirror-bot/internal/handlers"
	"telegram-mirror-bot/internal/logutils"
	"telegram-mirror-bot/internal/rcbrowse"
	"telegram-mirror-bot/internal/resolve"
	"telegram-mirror-bot/internal/task"
	"telegram-mirror-bot/internal/tglink"
	"telegram-mirror-bot/internal/timeutil"
	"telegram-mirror-bot/internal/upload"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logutils.Log.WithError(err).Fatal("Failed to initialize configuration")
	}

	logutils.InitLogger(cfg.LogLevel)
	logutils.Log.WithFields(map[string]any{
		"version":    Version,
		"build_time": BuildTime,
	}).Info("Starting Telegram Mirror Bot")

	if err := os.MkdirAll(cfg.DownloadDir, 0o755); err != nil {
		logutils.Log.WithError(err).Fatal("Failed to create download directory")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		logutils.Log.WithError(err).Fatal("Failed to create database directory")
	}

	clock := timeutil.NewSystemProvider()

	store, err := database.NewStore(cfg.DBPath, clock)
	if err != nil {
		logutils.Log.WithError(err).Fatal("Database initialization failed")
	}

	botInstance, err := bot.InitBot(cfg.BotToken)
	if err != nil {
		logutils.Log.WithError(err).Fatal("Bot initialization failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var uploader upload.Service
	if cfg.Storage.Bucket != "" {
		s3, err := upload.NewS3Service(ctx, cfg.Storage)
		if err != nil {
			logutils.Log.WithError(err).Fatal("Storage initialization failed")
		}
		uploader = s3
	}

	registry := task.NewRegistry()
	handler := dispatch.NewCompletionHandler(botInstance, uploader, cfg.DownloadDir)

	torrents, err := torrentengine.New()
	if err != nil {
		logutils.Log.WithError(err).Fatal("Torrent client initialization failed")
	}
	defer torrents.Close()

	direct := directengine.New(http.DefaultClient)
	engines := engine.NewRegistry()
	engines.Register(engine.KindTorrent, torrents)
	engines.Register(engine.KindDirect, direct)
	engines.Register(engine.KindTelegram, telegramengine.New(botInstance))
	engines.Register(engine.KindRemote, rcloneengine.New())
	engines.Register(engine.KindCloudDrive, driveengine.New(direct))
	engines.Register(engine.KindCloudBackup, megaengine.New())
	engines.Register(engine.KindVideo, videoengine.New())

	scheduler := dispatch.NewScheduler(clock, cfg.Spawn.SpawnWindow)

	dispatcher := dispatch.NewDispatcher(dispatch.Deps{
		Config:    cfg,
		Bot:       botInstance,
		Registry:  registry,
		Admission: task.NewAdmissionController(registry, store, cfg.Quota),
		Engines:   engines,
		Listener: task.ListenerDeps{
			Registry:  registry,
			Usage:     store,
			Notifier:  handler,
			Finalizer: handler,
		},
		Prober:   resolve.NewProber(http.DefaultClient),
		Resolver: resolve.ChainedResolver{},
		Telegram: tglink.NewResolver(),
		Browser:  rcbrowse.NewBrowser(cfg),
		Spawner:  scheduler,
	})

	go scheduler.Run(ctx, dispatcher)

	router := handlers.NewRouter(botInstance, dispatcher, registry)
	go processUpdates(ctx, botInstance, router)

	logutils.Log.Info("Telegram Mirror Bot started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logutils.Log.Info("Received shutdown signal, starting graceful shutdown...")
	cancel()

	for _, l := range registry.All() {
		l.Cancel()
	}
	logutils.Log.Info("Telegram Mirror Bot shutdown complete")
}

func processUpdates(ctx context.Context, b *bot.Bot, router *handlers.Router) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.Api.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			router.Route(ctx, update)
		case <-ctx.Done():
			logutils.Log.Info("Stopping update processing")
			return
		}
	}
}
