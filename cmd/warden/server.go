package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/phantomguard/warden/automod"
	"github.com/phantomguard/warden/automod/cachestore"
	"github.com/phantomguard/warden/automod/consumer"
	"github.com/phantomguard/warden/automod/countstore"
	"github.com/phantomguard/warden/automod/engine"
	"github.com/phantomguard/warden/automod/flagstore"
	"github.com/phantomguard/warden/automod/platform/discord"
	"github.com/phantomguard/warden/automod/profile"
	"github.com/phantomguard/warden/automod/rules"
	"github.com/phantomguard/warden/automod/setstore"
	"github.com/phantomguard/warden/util"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	logger     *slog.Logger
	engine     *automod.Engine
	consumer   *consumer.DiscordConsumer
	rdb        *redis.Client
	adminToken string
}

type Config struct {
	Logger          *slog.Logger
	DiscordToken    string
	DiscordRPS      float64
	CommandPrefix   string
	RedisURL        string
	SetsFileJSON    string
	SlackWebhookURL string
	AdminToken      string
	Engine          engine.Config
}

func engineConfig(cctx *cli.Context) engine.Config {
	cfg := engine.DefaultConfig()
	cfg.JoinThreshold = cctx.Int("join-threshold")
	cfg.JoinWindow = cctx.Duration("join-window")
	cfg.SpamMessageLimit = cctx.Int("spam-message-limit")
	cfg.SpamWindow = cctx.Duration("spam-window")
	cfg.MentionLimit = cctx.Int("mention-limit")
	cfg.SuspicionLimit = cctx.Int("suspicion-limit")
	cfg.RaidSweepInterval = cctx.Duration("raid-sweep-interval")
	cfg.RoleSweepInterval = cctx.Duration("role-sweep-interval")
	cfg.AuditChannel = cctx.String("audit-channel")
	return cfg
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	if err := config.Engine.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	sets := setstore.NewMemSetStore()
	if config.SetsFileJSON != "" {
		if err := sets.LoadFromFileJSON(config.SetsFileJSON); err != nil {
			return nil, fmt.Errorf("initializing in-process setstore: %v", err)
		} else {
			logger.Info("loaded set config from JSON", "path", config.SetsFileJSON)
		}
	}

	var counters countstore.CountStore
	var cache cachestore.CacheStore
	var flags flagstore.FlagStore
	var rdb *redis.Client
	if config.RedisURL != "" {
		// generic client, for health checks
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %v", err)
		}
		rdb = redis.NewClient(opt)
		// check redis connection
		_, err = rdb.Ping(context.TODO()).Result()
		if err != nil {
			return nil, fmt.Errorf("redis ping failed: %v", err)
		}

		cnt, err := countstore.NewRedisCountStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis countstore: %v", err)
		}
		counters = cnt

		csh, err := cachestore.NewRedisCacheStore(config.RedisURL, 30*time.Minute)
		if err != nil {
			return nil, fmt.Errorf("initializing redis cachestore: %v", err)
		}
		cache = csh

		flg, err := flagstore.NewRedisFlagStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis flagstore: %v", err)
		}
		flags = flg
	} else {
		counters = countstore.NewMemCountStore()
		cache = cachestore.NewMemCacheStore(5_000, 30*time.Minute)
		flags = flagstore.NewMemFlagStore()
	}

	session, err := discordgo.New("Bot " + config.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}

	var notifier automod.Notifier
	if config.SlackWebhookURL != "" {
		notifier = &automod.SlackNotifier{
			SlackWebhookURL: config.SlackWebhookURL,
			Client:          util.RobustHTTPClient(logger),
		}
	}

	eng := automod.Engine{
		Logger:   logger,
		Config:   config.Engine,
		Platform: discord.NewPlatform(session, logger, config.DiscordRPS),
		Rules:    rules.DefaultRules(),
		Profiles: profile.NewStore(),
		Tenants:  engine.NewTenantRegistry(),
		Counters: counters,
		Sets:     sets,
		Cache:    cache,
		Flags:    flags,
		Notifier: notifier,
	}

	s := &Server{
		logger:     logger,
		engine:     &eng,
		rdb:        rdb,
		adminToken: config.AdminToken,
		consumer: &consumer.DiscordConsumer{
			Logger:  logger,
			Session: session,
			Engine:  &eng,
			Router:  &consumer.CommandRouter{Engine: &eng, Prefix: config.CommandPrefix},
		},
	}
	return s, nil
}

// Runs the gateway consumer, periodic sweeps, and HTTP servers until the context is cancelled or one of them fails.
func (s *Server) Run(ctx context.Context, bind, metricsListen string) error {
	cfg := s.engine.Config
	s.logger.Info("warden starting",
		"joinThreshold", cfg.JoinThreshold,
		"joinWindow", cfg.JoinWindow,
		"spamMessageLimit", cfg.SpamMessageLimit,
		"spamWindow", cfg.SpamWindow,
		"mentionLimit", cfg.MentionLimit,
		"suspicionLimit", cfg.SuspicionLimit,
		"raidSweepInterval", cfg.RaidSweepInterval,
		"roleSweepInterval", cfg.RoleSweepInterval,
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return s.consumer.Run(ctx)
	})
	eg.Go(func() error {
		return s.engine.RunRaidSweeps(ctx)
	})
	eg.Go(func() error {
		// guild state arrives with the gateway ready event
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(5 * time.Second):
		}
		return s.engine.RunRoleReconciler(ctx)
	})
	eg.Go(func() error {
		return s.RunMetrics(ctx, metricsListen)
	})
	if s.adminToken != "" {
		eg.Go(func() error {
			return s.RunAPI(ctx, bind)
		})
	} else {
		s.logger.Info("admin token not configured, admin API disabled")
	}
	return eg.Wait()
}

func (s *Server) RunMetrics(ctx context.Context, listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return serveUntilDone(ctx, &http.Server{Addr: listen, Handler: mux})
}

func serveUntilDone(ctx context.Context, httpd *http.Server) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpd.Shutdown(shutdownCtx)
	}()
	if err := httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server %s: %w", httpd.Addr, err)
	}
	return nil
}
