package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/Nixend-creator/DynamicEconomy/internal/auction"
	"github.com/Nixend-creator/DynamicEconomy/internal/auth"
	"github.com/Nixend-creator/DynamicEconomy/internal/broadcast"
	"github.com/Nixend-creator/DynamicEconomy/internal/catalogue"
	"github.com/Nixend-creator/DynamicEconomy/internal/config"
	"github.com/Nixend-creator/DynamicEconomy/internal/contracts"
	"github.com/Nixend-creator/DynamicEconomy/internal/database"
	"github.com/Nixend-creator/DynamicEconomy/internal/events"
	"github.com/Nixend-creator/DynamicEconomy/internal/market"
	"github.com/Nixend-creator/DynamicEconomy/internal/persistence"
	"github.com/Nixend-creator/DynamicEconomy/internal/players"
	"github.com/Nixend-creator/DynamicEconomy/internal/reputation"
	"github.com/Nixend-creator/DynamicEconomy/internal/seasonal"
	"github.com/Nixend-creator/DynamicEconomy/internal/treasury"
	"github.com/Nixend-creator/DynamicEconomy/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main loads configuration and state, runs the background processors and
// the HTTP API, and saves everything on shutdown.
func main() {
	configPath := os.Getenv("DYNECO_CONFIG")
	if configPath == "" {
		configPath = "config.toml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		zlog.Fatal().Err(err).Str("path", configPath).Msg("Failed to load config")
	}
	if cfg.Server.JWTSecret == "" {
		cfg.Server.JWTSecret = uuid.New().String()
		zlog.Warn().Msg("no JWT secret configured, tokens will not survive a restart")
	}

	cat, err := catalogue.Load(cfg.Catalogue.Path)
	if err != nil {
		zlog.Fatal().Err(err).Str("path", cfg.Catalogue.Path).Msg("Failed to load catalogue")
	}

	db, err := database.NewDatabase(cfg.Data.DatabasePath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer database.Close(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Announcements fan out to the log, the WebSocket hub and, when
	// configured, Redis.
	hub := broadcast.NewHub()
	sinks := []broadcast.Sink{broadcast.LogSink{}, hub}
	if cfg.Redis.Addr != "" {
		redisSink, err := broadcast.NewRedisSink(ctx, broadcast.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		})
		if err != nil {
			zlog.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, announcements stay local")
		} else {
			defer redisSink.Close()
			sinks = append(sinks, redisSink)
		}
	}
	dispatcher := broadcast.NewDispatcher(sinks...)

	// Stores
	registry := players.NewRegistry(cfg.Players)
	ledger := treasury.NewLedger(dispatcher)
	rotation := seasonal.New(cat, cfg.Seasonal, dispatcher)
	board := contracts.NewBoard(cat, cfg.Contracts, dispatcher)
	marketEvents := events.NewEngine(cat, cfg.MarketEvents, cfg.Logging.LogEvents, dispatcher)
	tracker := reputation.NewTracker(cfg.Reputation, cfg.Economy)
	auctionBoard := auction.NewBoard(cat, cfg.Auction, func(id string) auction.Holder {
		return registry.Account(id)
	}, ledger, dispatcher)

	engine := market.NewEngine(cat, *cfg, market.Deps{
		Seasonal:   rotation,
		Contracts:  board,
		Events:     marketEvents,
		Treasury:   ledger,
		Reputation: tracker,
	})

	goodsDB := market.NewDatabase(db)
	accountsDB := players.NewDatabase(db)
	treasuryDB := treasury.NewDatabase(db)
	reputationDB := reputation.NewDatabase(db)
	auctionDB := auction.NewDatabase(db)

	saver := persistence.NewAutoSaver(
		func() time.Duration {
			return time.Duration(engine.Config().Data.AutoSaveIntervalMinutes) * time.Minute
		},
		persistence.Store{Name: "goods", Load: func() error { return engine.Load(goodsDB) }, Save: func() error { return engine.Save(goodsDB) }},
		persistence.Store{Name: "accounts", Load: func() error { return registry.Load(accountsDB) }, Save: func() error { return registry.Save(accountsDB) }},
		persistence.Store{Name: "treasury", Load: func() error { return ledger.Load(treasuryDB) }, Save: func() error { return ledger.Save(treasuryDB) }},
		persistence.Store{Name: "reputation", Load: func() error { return tracker.Load(reputationDB) }, Save: func() error { return tracker.Save(reputationDB) }},
		persistence.Store{Name: "auction", Load: func() error { return auctionBoard.Load(auctionDB) }, Save: func() error { return auctionBoard.Save(auctionDB) }},
	)
	if err := saver.LoadAll(); err != nil {
		zlog.Warn().Err(err).Msg("some stores started from defaults")
	}

	admin := &market.Admin{
		Engine:     engine,
		Goods:      goodsDB,
		Seasonal:   rotation,
		Contracts:  board,
		Events:     marketEvents,
		Auction:    auctionBoard,
		Treasury:   ledger,
		Reputation: tracker,
		Players:    registry,
		ConfigPath: configPath,
	}

	authService := auth.NewService(cfg.Server.JWTSecret, cfg.Server.AdminSecret, registry)
	limiter := middleware.NewRateLimiter()

	if os.Getenv("ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	setupRoutes(router, routeDeps{
		auth:     auth.NewGinHandlers(authService),
		market:   market.NewGinHandlers(admin),
		auction:  auction.NewGinHandlers(auctionBoard),
		hub:      hub,
		authSvc:  authService,
		registry: registry,
		limiter:  limiter,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// The dispatcher outlives the processors so the last announcements are
	// drained.
	processors, processorCtx := errgroup.WithContext(ctx)
	for _, start := range []func(context.Context){
		rotation.Start,
		contracts.NewProcessor(board).Start,
		events.NewProcessor(marketEvents).Start,
		auction.NewProcessor(auctionBoard).Start,
		market.NewRecoveryProcessor(engine).Start,
		registry.Start,
		limiter.Cleanup,
		saver.Start,
	} {
		processors.Go(func() error {
			start(processorCtx)
			return nil
		})
	}

	dispatchCtx, cancelDispatch := context.WithCancel(context.Background())
	dispatchDone := make(chan error, 1)
	go func() { dispatchDone <- dispatcher.Run(dispatchCtx) }()

	processors.Go(func() error {
		zlog.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	processors.Go(func() error {
		<-processorCtx.Done()
		zlog.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hub.Close()
		return srv.Shutdown(shutdownCtx)
	})

	if err := processors.Wait(); err != nil {
		zlog.Error().Err(err).Msg("server stopped with error")
	}

	if err := saver.SaveAll(); err != nil {
		zlog.Error().Err(err).Msg("final save incomplete")
	}
	cancelDispatch()
	<-dispatchDone

	zlog.Info().Msg("Server exiting")
}

type routeDeps struct {
	auth     *auth.GinHandlers
	market   *market.GinHandlers
	auction  *auction.GinHandlers
	hub      *broadcast.Hub
	authSvc  *auth.Service
	registry *players.Registry
	limiter  *middleware.RateLimiter
}

// setupRoutes configures all API endpoints and their handlers:
// - Auth routes: public login, rate limited by IP
// - Player routes: JWT plus a live session, rate limited by player
// - Admin routes: player routes plus the admin flag
func setupRoutes(router *gin.Engine, d routeDeps) {
	v1 := router.Group("/api/v1")
	{
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/token", d.limiter.Middleware(), d.auth.GenerateTokenHandler())
			authRoutes.POST("/logout", middleware.JWTAuth(d.authSvc, d.registry), d.auth.LogoutHandler())
		}

		player := v1.Group("")
		player.Use(middleware.JWTAuth(d.authSvc, d.registry), d.limiter.Middleware())
		{
			player.GET("/stream", streamHandler(d.hub, d.registry))

			marketRoutes := player.Group("/market")
			{
				marketRoutes.GET("/categories", d.market.CategoriesHandler())
				marketRoutes.GET("/categories/:key", d.market.CategoryGoodsHandler())
				marketRoutes.GET("/goods/:key", d.market.GoodHandler())
				marketRoutes.GET("/goods/:key/preview", d.market.PreviewHandler())
				marketRoutes.POST("/sell", d.market.SellHandler())
				marketRoutes.POST("/buy", d.market.BuyHandler())
				marketRoutes.GET("/snapshot", d.market.SnapshotHandler())
			}

			player.GET("/contracts", d.market.ContractsHandler())
			player.GET("/events", d.market.EventsHandler())
			player.GET("/account", d.market.AccountHandler())

			auctionRoutes := player.Group("/auction")
			{
				auctionRoutes.GET("", d.auction.PageHandler())
				auctionRoutes.POST("", d.auction.ListHandler())
				auctionRoutes.POST("/:id/buy", d.auction.BuyHandler())
				auctionRoutes.DELETE("/:id", d.auction.CancelHandler())
			}

			admin := player.Group("/admin")
			admin.Use(middleware.RequireAdmin())
			{
				admin.GET("/info", d.market.InfoHandler())
				admin.POST("/reload", d.market.ReloadHandler())
				admin.POST("/reset", d.market.ResetHandler())
				admin.POST("/setprice", d.market.SetPriceHandler())
				admin.POST("/event", d.market.FireEventHandler())
				admin.GET("/treasury", d.market.TreasuryHandler())
				admin.POST("/treasury/give", d.market.GiveHandler())
				admin.POST("/treasury/giveall", d.market.GiveAllHandler())
				admin.POST("/grant", d.market.GrantHandler())
			}
		}
	}
}

// streamHandler upgrades to a WebSocket that receives every announcement.
// A stream-only session is closed when its socket goes away, which drops the
// player from the connected set.
func streamHandler(hub *broadcast.Hub, registry *players.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := middleware.SessionFrom(c)
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		var onClose func()
		if s.StreamOnly() {
			onClose = func() { registry.Close(s.SessionID) }
		}
		hub.Serve(c.Writer, c.Request, s.ID(), onClose)
	}
}
