package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"horeca/storefront/internal/config"
	"horeca/storefront/internal/database"
	"horeca/storefront/internal/leads"
	"horeca/storefront/internal/logging"
)

const topicPrefix = "horeca.storefront.lead."

type service struct {
	module string
	store  *leads.Store
	logger *zap.Logger
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Warn("database unavailable, running checkout in memory mode", zap.Error(err))
		db = nil
	}
	store := leads.NewStore(db, cfg.Cache.TTL)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Warn("schema setup failed, using memory mode", zap.Error(err))
		_ = db.Close()
		store = leads.NewStore(nil, cfg.Cache.TTL)
	} else if db != nil {
		defer db.Close()
	}

	svc := &service{module: cfg.Module, store: store, logger: logger}
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           svc.newEcho(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    1 << 20,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("checkout-service listening", zap.String("addr", srv.Addr), zap.String("mode", store.Mode()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("checkout-service stopped", zap.Error(err))
		os.Exit(1)
	}
}

func (s *service) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler
	e.Use(withServerDefaults, middleware.BodyLimit("1M"))

	e.GET("/healthz", s.healthz)
	base := e.Group("/v1/leads")
	base.GET("", s.listLeads)
	base.GET("/_explain", s.explainLeads)
	base.GET("/:id", s.getLead)
	base.PATCH("/:id", s.updateLead)
	base.PUT("/:id", s.updateLead)
	base.DELETE("/:id", s.deleteLead)
	return e
}

func (s *service) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"status": "healthy", "module": s.module, "service": "checkout-service", "mode": s.store.Mode()})
}

func (s *service) listLeads(c echo.Context) error {
	q := leads.ListQuery{
		Kind:   strings.TrimSpace(c.QueryParam("kind")),
		Status: strings.TrimSpace(c.QueryParam("status")),
		Cursor: strings.TrimSpace(c.QueryParam("cursor")),
		Limit:  intParam(c, "limit", leads.DefaultLimit, 1, 200),
	}
	res, err := s.store.List(c.Request().Context(), q)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": res.Items, "next_cursor": res.NextCursor, "cached": res.Cached, "event_topic": topicPrefix + "listed"})
}

func (s *service) explainLeads(c echo.Context) error {
	plan, err := s.store.Explain(c.Request().Context(), c.QueryParam("kind"), c.QueryParam("status"))
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"plan": plan, "event_topic": topicPrefix + "explain.generated"})
}

func (s *service) getLead(c echo.Context) error {
	l, err := s.store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"item": l, "event_topic": topicPrefix + "read"})
}

func (s *service) updateLead(c echo.Context) error {
	var req leads.Update
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid JSON payload"))
	}
	l, err := s.store.Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return s.storeError(c, err)
	}
	s.logger.Info("lead updated", zap.String("lead_id", l.ID), zap.String("status", l.Status))
	return c.JSON(http.StatusOK, map[string]any{"item": l, "event_topic": topicPrefix + "updated"})
}

func (s *service) deleteLead(c echo.Context) error {
	id := c.Param("id")
	if err := s.store.Delete(c.Request().Context(), id); err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"id": id, "event_topic": topicPrefix + "deleted"})
}

func (s *service) storeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, leads.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorBody("lead not found"))
	case errors.Is(err, leads.ErrEmptyUpdate), errors.Is(err, leads.ErrInvalidStatus), errors.Is(err, leads.ErrInvalidCursor):
		return c.JSON(http.StatusBadRequest, errorBody(err.Error()))
	default:
		return err
	}
}

func (s *service) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "internal error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	} else {
		s.logger.Error("request failed", zap.String("route", c.Path()), zap.Error(err))
	}
	_ = c.JSON(code, errorBody(msg))
}

func withServerDefaults(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Response().Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		return next(c)
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func intParam(c echo.Context, key string, def, min, max int) int {
	raw := strings.TrimSpace(c.QueryParam(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
