package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "warden",
		Usage:   "raid and spam escalation daemon for discord communities",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			Value:   "info",
			EnvVars: []string{"WARDEN_LOG_LEVEL", "LOG_LEVEL"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "discord-token",
			Usage:    "discord bot token",
			Required: true,
			EnvVars:  []string{"WARDEN_DISCORD_TOKEN", "DISCORD_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "command-prefix",
			Usage:   "prefix for administrative text commands",
			Value:   "!",
			EnvVars: []string{"WARDEN_COMMAND_PREFIX"},
		},
		&cli.Float64Flag{
			Name:    "discord-rate-limit",
			Usage:   "max outbound discord API requests per second",
			Value:   20,
			EnvVars: []string{"WARDEN_DISCORD_RATE_LIMIT"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":3999",
			EnvVars: []string{"WARDEN_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3998",
			EnvVars: []string{"WARDEN_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "admin-token",
			Usage:   "bearer token for the admin HTTP API; API is disabled if not set",
			EnvVars: []string{"WARDEN_ADMIN_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for counters, flags, and caches",
			EnvVars: []string{"WARDEN_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "sets-json-path",
			Usage:   "file path of JSON file containing static sets (eg, suspect-tokens)",
			EnvVars: []string{"WARDEN_SETS_JSON_PATH"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "full URL of slack webhook",
			EnvVars: []string{"SLACK_WEBHOOK_URL"},
		},
		&cli.StringFlag{
			Name:    "audit-channel",
			Usage:   "name of the channel receiving shadowbanned message content",
			Value:   "phantomguard-logs",
			EnvVars: []string{"WARDEN_AUDIT_CHANNEL"},
		},
		&cli.IntFlag{
			Name:    "join-threshold",
			Usage:   "joins inside the join window which trigger a lockdown",
			Value:   5,
			EnvVars: []string{"WARDEN_JOIN_THRESHOLD"},
		},
		&cli.DurationFlag{
			Name:    "join-window",
			Value:   15 * time.Second,
			EnvVars: []string{"WARDEN_JOIN_WINDOW"},
		},
		&cli.IntFlag{
			Name:    "spam-message-limit",
			Usage:   "messages inside the spam window above which a member is bursting",
			Value:   5,
			EnvVars: []string{"WARDEN_SPAM_MESSAGE_LIMIT"},
		},
		&cli.DurationFlag{
			Name:    "spam-window",
			Value:   10 * time.Second,
			EnvVars: []string{"WARDEN_SPAM_WINDOW"},
		},
		&cli.IntFlag{
			Name:    "mention-limit",
			Value:   5,
			EnvVars: []string{"WARDEN_MENTION_LIMIT"},
		},
		&cli.IntFlag{
			Name:    "suspicion-limit",
			Usage:   "suspicion score (0-100) at which members are escalated",
			Value:   70,
			EnvVars: []string{"WARDEN_SUSPICION_LIMIT"},
		},
		&cli.DurationFlag{
			Name:    "raid-sweep-interval",
			Value:   10 * time.Second,
			EnvVars: []string{"WARDEN_RAID_SWEEP_INTERVAL"},
		},
		&cli.DurationFlag{
			Name:    "role-sweep-interval",
			Value:   5 * time.Minute,
			EnvVars: []string{"WARDEN_ROLE_SWEEP_INTERVAL"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger := configLogger(cctx)
		slog.SetDefault(logger)

		shutdownOTEL := configOTEL("warden")
		defer shutdownOTEL()

		srv, err := NewServer(Config{
			Logger:          logger,
			DiscordToken:    cctx.String("discord-token"),
			DiscordRPS:      cctx.Float64("discord-rate-limit"),
			CommandPrefix:   cctx.String("command-prefix"),
			RedisURL:        cctx.String("redis-url"),
			SetsFileJSON:    cctx.String("sets-json-path"),
			SlackWebhookURL: cctx.String("slack-webhook-url"),
			AdminToken:      cctx.String("admin-token"),
			Engine:          engineConfig(cctx),
		})
		if err != nil {
			return fmt.Errorf("failed to construct server: %w", err)
		}

		return srv.Run(ctx, cctx.String("bind"), cctx.String("metrics-listen"))
	},
}

func configLogger(cctx *cli.Context) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cctx.String("log-level"))); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
