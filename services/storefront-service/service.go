package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"horeca/storefront/internal/cart"
	"horeca/storefront/internal/catalog"
	"horeca/storefront/internal/config"
	"horeca/storefront/internal/database"
	"horeca/storefront/internal/leads"
)

type service struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *sql.DB
	catalog  *catalog.Catalog
	views    *catalog.ViewCache
	carts    *cart.Registry
	leads    *leads.Store
	intake   *leads.Intake
	notifier leads.Notifier
}

func newService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*service, error) {
	svc := &service{cfg: cfg, logger: logger}

	if db, err := database.Connect(ctx, cfg.Database); err != nil {
		logger.Warn("database unavailable, running storefront in memory mode", zap.Error(err))
	} else {
		svc.db = db
		if err := catalog.EnsureSchema(ctx, db); err != nil {
			logger.Warn("schema setup failed, using memory mode", zap.Error(err))
			_ = db.Close()
			svc.db = nil
		}
	}

	ds, err := loadDataset(ctx, cfg, svc.db, logger)
	if err != nil {
		svc.close()
		return nil, err
	}
	svc.catalog = catalog.New(ds)
	svc.views = catalog.NewViewCache(cfg.Cache.TTL)
	svc.carts = cart.NewRegistry(
		cart.WithPolicy(cart.ParseMergePolicy(cfg.Cart.MergePolicy)),
		cart.WithLogger(logger.Named("cart")),
	)

	svc.leads = leads.NewStore(svc.db, cfg.Cache.TTL)
	if err := svc.leads.EnsureSchema(ctx); err != nil {
		logger.Warn("lead schema setup failed", zap.Error(err))
	}
	svc.notifier = leads.NopNotifier{}
	if cfg.Leads.SMTP.Enabled() {
		n, err := leads.NewMailNotifier(cfg.Leads, logger.Named("notify"))
		if err != nil {
			svc.close()
			return nil, err
		}
		svc.notifier = n
	}
	svc.intake, err = leads.NewIntake(svc.leads, svc.notifier, cfg.Leads.NodeID, logger.Named("leads"))
	if err != nil {
		svc.close()
		return nil, err
	}

	logger.Info("storefront ready",
		zap.String("mode", svc.mode()),
		zap.String("catalog_source", cfg.Catalog.Source),
		zap.Int("products", len(ds.Products())),
		zap.String("merge_policy", cfg.Cart.MergePolicy),
	)
	return svc, nil
}

// loadDataset reads the catalog from the configured source. A postgres
// source without a database falls back to the built-in seed.
func loadDataset(ctx context.Context, cfg *config.Config, db *sql.DB, logger *zap.Logger) (*catalog.Dataset, error) {
	switch cfg.Catalog.Source {
	case "file":
		return catalog.LoadFile(cfg.Catalog.File)
	case "postgres":
		if db == nil {
			logger.Warn("catalog source is postgres but no database is available, using seed catalog")
			return catalog.Seed(), nil
		}
		ds, err := catalog.LoadDB(ctx, db)
		if err != nil {
			return nil, err
		}
		if len(ds.Products()) == 0 {
			logger.Warn("catalog table is empty, using seed catalog")
			return catalog.Seed(), nil
		}
		return ds, nil
	default:
		return catalog.Seed(), nil
	}
}

func (s *service) mode() string {
	if s.db == nil {
		return "memory"
	}
	return "postgres"
}

// run serves HTTP and the background jobs until ctx is cancelled.
func (s *service) run(ctx context.Context) error {
	e := s.newEcho()
	srv := &http.Server{
		Addr:              ":" + s.cfg.Server.Port,
		Handler:           e,
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		IdleTimeout:       s.cfg.Server.IdleTimeout,
		MaxHeaderBytes:    1 << 20,
	}

	sweeper, err := s.carts.StartSweeper(s.cfg.Cart.SweepSpec, s.cfg.Cart.IdleTTL)
	if err != nil {
		return err
	}
	defer func() { <-sweeper.Stop().Done() }()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("storefront-service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if s.cfg.Catalog.Source == "file" && s.cfg.Catalog.Watch {
		g.Go(func() error {
			return catalog.Watch(ctx, s.catalog, s.cfg.Catalog.File, s.logger.Named("catalog"))
		})
	}
	if s.cfg.Cache.TTL > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(s.cfg.Cache.TTL)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					s.views.Prune(s.catalog.Version())
				}
			}
		})
	}
	return g.Wait()
}

func (s *service) close() {
	if s.notifier != nil {
		s.notifier.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *service) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler
	e.Use(withServerDefaults, s.requestLogger, recoverer(s.logger), middleware.BodyLimit("1M"), releaseCart)
	s.routes(e)
	return e
}
