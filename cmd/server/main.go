package main // Entry point package

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/iliyamo/movie-catalog/internal/config"
	"github.com/iliyamo/movie-catalog/internal/handler"
	"github.com/iliyamo/movie-catalog/internal/middleware"
	"github.com/iliyamo/movie-catalog/internal/queue"
	"github.com/iliyamo/movie-catalog/internal/repository"
	"github.com/iliyamo/movie-catalog/internal/router"
	"github.com/iliyamo/movie-catalog/internal/seed"
)

func main() {
	config.LoadDotEnv()

	app := cli.NewApp()
	app.Name = "movie-catalog"
	app.Usage = "serves the movie catalog api"
	app.Flags = config.RegisterFlags(nil)
	app.Action = serve

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("failed to serve")
	}
}

func serve(c *cli.Context) error {
	cfg := config.New(c)
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	movies, err := seed.Load(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "failed to load seed movies")
	}
	repo := repository.NewMovieRepo(movies)
	log.WithField("count", repo.Len()).Info("movie store seeded")

	var events queue.Publisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		p := queue.NewAMQPPublisher(cfg.RabbitMQURL, 0)
		defer p.Close()
		events = p
	}

	var cache echo.MiddlewareFunc
	if cfg.Cache.Enabled {
		if rdb := config.NewRedisClient(cfg.Redis); rdb != nil {
			defer rdb.Close()
			cache = middleware.NewRedisCache(cfg.Cache, rdb)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log.StandardLogger()))
	router.RegisterRoutes(e)
	router.RegisterMovies(e, handler.NewMovieHandler(repo, events), middleware.NewCORSGate(cfg.AllowedOrigins), cache)

	addr := ":" + cfg.Port
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("graceful shutdown failed")
		}
	}()

	log.WithField("addr", addr).WithField("env", cfg.Env).Infof("server running on http://localhost%s", addr)
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
