package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alanbriolat/media-archiver"
	"github.com/alanbriolat/media-archiver/async"
)

const envPrefix = "MEDIA_ARCHIVER_"

func main() {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.Level.SetLevel(zapcore.InfoLevel)
	logger, err := config.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	// Must happen before flag parsing, so .env values are seen as environment variables
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Sugar().Warnf("failed to load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = media_archiver.WithLogger(ctx, logger)

	app := newApp(ctx, config.Level)
	err = async.Await(ctx, func() error { return app.Run(os.Args) }, stop)
	if err != nil {
		logger.Fatal(err.Error())
	}
}

func newApp(ctx context.Context, level zap.AtomicLevel) *cli.App {
	return &cli.App{
		Name:  "media-archiver",
		Usage: "acquire images and videos from web pages, and analyse them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "media-archiver.toml",
				Usage:   "read configuration from `FILE`, if it exists",
				EnvVars: []string{envPrefix + "CONFIG"},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "store images and videos under `DIR`",
				EnvVars: []string{envPrefix + "DATA_DIR"},
			},
			&cli.StringFlag{
				Name:    "renderer",
				Usage:   "page renderer: chrome or static",
				EnvVars: []string{envPrefix + "RENDERER"},
			},
			&cli.StringFlag{
				Name:    "ytdlp",
				Usage:   "path to the yt-dlp `BINARY`",
				EnvVars: []string{envPrefix + "YTDLP"},
			},
			&cli.StringFlag{
				Name:    "history",
				Usage:   "record acquisitions in `FILE`",
				EnvVars: []string{envPrefix + "HISTORY"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
				EnvVars: []string{envPrefix + "VERBOSE"},
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				level.SetLevel(zapcore.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			acquireCommand(ctx),
			classifyCommand(ctx),
			scrapeCommand(ctx),
			analyzeCommand(ctx),
			historyCommand(ctx),
		},
		HideHelpCommand: true,
	}
}
