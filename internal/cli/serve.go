package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/screen-seat-reservation/internal/booking"
	"github.com/iliyamo/screen-seat-reservation/internal/config"
	"github.com/iliyamo/screen-seat-reservation/internal/handler"
	"github.com/iliyamo/screen-seat-reservation/internal/middleware"
	"github.com/iliyamo/screen-seat-reservation/internal/queue"
	"github.com/iliyamo/screen-seat-reservation/internal/repository"
	"github.com/iliyamo/screen-seat-reservation/internal/router"
	"github.com/iliyamo/screen-seat-reservation/internal/service"
)

type serveFlags struct {
	consumer bool
}

func newServeCommand(rt *runtime) *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API on APP_PORT.

When EVENTS_ENABLED is true, registrations and reservations are published
to RabbitMQ and, unless --consumer=false, the audit consumer runs in the
same process and appends every event to EVENTS_LOG_DIR/booking.log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return rt.withStore(ctx, rt.cfg.AutoMigrate, func(store repository.Store) error {
				return rt.serve(ctx, store, flags)
			})
		},
	}
	cmd.Flags().BoolVar(&flags.consumer, "consumer", true, "run the audit consumer when events are enabled")
	return cmd
}

func (rt *runtime) serve(ctx context.Context, store repository.Store, flags *serveFlags) error {
	log := rt.log

	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		log.Warn("redis unavailable, caching and rate limiting disabled", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var events service.EventPublisher = service.NopPublisher{}
	if rt.cfg.EventsEnabled {
		pub := service.NewPublisher(rt.cfg.AMQPURL, log)
		defer pub.Close()
		events = pub
	}

	e := newServer(store, rdb, events, log)
	addr := ":" + rt.cfg.Port

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", addr), zap.String("env", rt.cfg.Env), zap.String("store", rt.cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(sctx)
	})
	if rt.cfg.EventsEnabled && flags.consumer {
		g.Go(func() error {
			return queue.StartAuditConsumer(gctx, rt.cfg.AMQPURL, rt.cfg.EventsLogDir, log)
		})
	}
	err = g.Wait()
	log.Info("server stopped")
	return err
}

// newServer builds the echo instance with the full middleware stack.
// rdb may be nil.
func newServer(store repository.Store, rdb *redis.Client, events service.EventPublisher, log *zap.Logger) *echo.Echo {
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb, log)
	h := handler.NewScreenHandler(booking.NewCatalog(store), booking.NewEngine(store), events, cache, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(log)
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))

	router.RegisterRoutes(e, h, router.Middlewares{
		WriteLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
		ReadCache:  cache.Middleware(),
	})
	return e
}
