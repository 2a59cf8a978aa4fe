package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"horeca/storefront/internal/cart"
	"horeca/storefront/internal/catalog"
	"horeca/storefront/internal/leads"
)

const topicPrefix = "horeca.storefront."

type productView struct {
	catalog.Product
	PriceDisplay    string `json:"price_display"`
	OldPriceDisplay string `json:"old_price_display,omitempty"`
}

type categoryView struct {
	catalog.Category
	Products int `json:"products"`
}

type cartLineView struct {
	ProductID       string          `json:"product_id"`
	Name            string          `json:"name"`
	Image           string          `json:"image,omitempty"`
	Price           decimal.Decimal `json:"price"`
	Quantity        int             `json:"quantity"`
	Size            string          `json:"size,omitempty"`
	Upholstery      string          `json:"upholstery,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	SubtotalDisplay string          `json:"subtotal_display"`
}

type cartView struct {
	Items        []cartLineView  `json:"items"`
	Count        int             `json:"count"`
	Total        decimal.Decimal `json:"total"`
	TotalDisplay string          `json:"total_display"`
	Version      uint64          `json:"version"`
}

type addItemRequest struct {
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	Size       string `json:"size"`
	Upholstery string `json:"upholstery"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity"`
}

type quizRequest struct {
	leads.Contact
	Answers map[string]string `json:"answers"`
}

func (s *service) routes(e *echo.Echo) {
	e.GET("/healthz", s.healthz)

	v1 := e.Group("/v1")
	v1.GET("/catalog/categories", s.listCategories)
	v1.GET("/catalog/products", s.listProducts)
	v1.GET("/catalog/products/:id", s.getProduct)
	v1.GET("/catalog/:category", s.listCategory)
	v1.GET("/catalog/:category/:subcategory", s.listCategory)

	v1.GET("/cart", s.getCart)
	v1.DELETE("/cart", s.clearCart)
	v1.POST("/cart/items", s.addCartItem)
	v1.PATCH("/cart/items/:productId", s.updateCartItem)
	v1.DELETE("/cart/items/:productId", s.removeCartItem)

	v1.POST("/checkout", s.checkout)
	v1.POST("/leads/quiz", s.quiz)
	v1.POST("/leads/consultation", s.consultation)
}

func (s *service) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":          "healthy",
		"module":          s.cfg.Module,
		"service":         "storefront-service",
		"mode":            s.mode(),
		"catalog_version": s.catalog.Version(),
		"active_carts":    s.carts.Len(),
	})
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

func (s *service) listCategories(c echo.Context) error {
	products := s.catalog.Products()
	items := make([]categoryView, 0)
	for _, cat := range s.catalog.Categories() {
		n := 0
		for _, p := range products {
			if p.InCategory(cat.Slug) {
				n++
			}
		}
		items = append(items, categoryView{Category: cat, Products: n})
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items, "event_topic": topicPrefix + "catalog.categories.listed"})
}

func (s *service) listProducts(c echo.Context) error {
	return s.respondProducts(c, catalog.ParseFilter(c.QueryParams()))
}

// listCategory serves /catalog/:category[/:subcategory]. Unknown slugs give
// an empty list.
func (s *service) listCategory(c echo.Context) error {
	f := catalog.ParseFilter(c.QueryParams())
	f.Category = c.Param("category")
	f.Subcategory = c.Param("subcategory")
	return s.respondProducts(c, f)
}

func (s *service) respondProducts(c echo.Context, f catalog.Filter) error {
	products, cached := s.views.View(s.catalog, f)
	items := make([]productView, 0, len(products))
	for _, p := range products {
		items = append(items, newProductView(p))
	}
	resp := map[string]any{
		"items":       items,
		"count":       len(items),
		"cached":      cached,
		"sort":        catalog.NormalizeSort(string(f.Sort)),
		"event_topic": topicPrefix + "catalog.listed",
	}
	if f.Category != "" {
		if cat, ok := s.catalog.Category(f.Category); ok {
			resp["category"] = cat
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *service) getProduct(c echo.Context) error {
	p, ok := s.catalog.ByID(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, errorBody("product not found"))
	}
	return c.JSON(http.StatusOK, map[string]any{"item": newProductView(p), "event_topic": topicPrefix + "product.read"})
}

func newProductView(p catalog.Product) productView {
	v := productView{Product: p, PriceDisplay: catalog.FormatPrice(p.Price)}
	if p.OldPrice != nil {
		v.OldPriceDisplay = catalog.FormatPrice(*p.OldPrice)
	}
	return v
}

// ---------------------------------------------------------------------------
// Cart
// ---------------------------------------------------------------------------

// openCart returns the session cart, creating it and setting the session
// cookie when needed.
func (s *service) openCart(c echo.Context) *cart.Store {
	var current string
	if ck, err := c.Cookie(s.cfg.Cart.CookieName); err == nil {
		current = ck.Value
	}
	id, store, release := s.carts.Acquire(current)
	holdCart(c, release)
	if id != current {
		c.SetCookie(&http.Cookie{
			Name:     s.cfg.Cart.CookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   int(s.cfg.Cart.IdleTTL / time.Second),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return store
}

// existingCart returns the session cart without creating one.
func (s *service) existingCart(c echo.Context) (*cart.Store, bool) {
	ck, err := c.Cookie(s.cfg.Cart.CookieName)
	if err != nil {
		return nil, false
	}
	store, release, ok := s.carts.AcquireExisting(ck.Value)
	if !ok {
		return nil, false
	}
	holdCart(c, release)
	return store, true
}

const cartReleaseKey = "cart.release"

// holdCart keeps the session cart leased until the request is done.
func holdCart(c echo.Context, release func()) {
	if prev, ok := c.Get(cartReleaseKey).(func()); ok {
		next := release
		release = func() {
			prev()
			next()
		}
	}
	c.Set(cartReleaseKey, release)
}

// releaseCart ends the cart lease taken by the handler.
func releaseCart(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		defer func() {
			if release, ok := c.Get(cartReleaseKey).(func()); ok {
				release()
			}
		}()
		return next(c)
	}
}

func (s *service) getCart(c echo.Context) error {
	store, ok := s.existingCart(c)
	if !ok {
		store = cart.NewStore()
	}
	return s.respondCart(c, http.StatusOK, store, "cart.read")
}

func (s *service) addCartItem(c echo.Context) error {
	var req addItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid JSON payload"))
	}
	if req.ProductID == "" {
		return c.JSON(http.StatusBadRequest, errorBody("product_id is required"))
	}
	p, ok := s.catalog.ByID(req.ProductID)
	if !ok {
		return c.JSON(http.StatusNotFound, errorBody("product not found"))
	}
	store := s.openCart(c)
	store.Add(p, req.Quantity, cart.Options{Size: req.Size, Upholstery: req.Upholstery})
	return s.respondCart(c, http.StatusOK, store, "cart.item.added")
}

func (s *service) updateCartItem(c echo.Context) error {
	var req updateItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid JSON payload"))
	}
	if req.Quantity == nil {
		return c.JSON(http.StatusBadRequest, errorBody("quantity is required"))
	}
	store, ok := s.existingCart(c)
	if !ok {
		return c.JSON(http.StatusNotFound, errorBody("cart item not found"))
	}
	id := c.Param("productId")
	if _, ok := store.Item(id); !ok {
		return c.JSON(http.StatusNotFound, errorBody("cart item not found"))
	}
	store.UpdateQuantity(id, *req.Quantity)
	return s.respondCart(c, http.StatusOK, store, "cart.item.updated")
}

func (s *service) removeCartItem(c echo.Context) error {
	store, ok := s.existingCart(c)
	if !ok {
		store = cart.NewStore()
	}
	store.Remove(c.Param("productId"))
	return s.respondCart(c, http.StatusOK, store, "cart.item.removed")
}

func (s *service) clearCart(c echo.Context) error {
	store, ok := s.existingCart(c)
	if !ok {
		store = cart.NewStore()
	}
	store.Clear()
	return s.respondCart(c, http.StatusOK, store, "cart.cleared")
}

func (s *service) respondCart(c echo.Context, code int, store *cart.Store, verb string) error {
	return c.JSON(code, map[string]any{"cart": newCartView(store.Snapshot()), "event_topic": topicPrefix + verb})
}

func newCartView(snap cart.Snapshot) cartView {
	v := cartView{
		Items:        make([]cartLineView, 0, len(snap.Items)),
		Count:        snap.Count,
		Total:        snap.Total,
		TotalDisplay: catalog.FormatPrice(snap.Total),
		Version:      snap.Version,
	}
	for _, it := range snap.Items {
		sub := it.Subtotal()
		v.Items = append(v.Items, cartLineView{
			ProductID:       it.Product.ID,
			Name:            it.Product.Name,
			Image:           it.Product.Image,
			Price:           it.Product.Price,
			Quantity:        it.Quantity,
			Size:            it.Options.Size,
			Upholstery:      it.Options.Upholstery,
			Subtotal:        sub,
			SubtotalDisplay: catalog.FormatPrice(sub),
		})
	}
	return v
}

// ---------------------------------------------------------------------------
// Checkout and leads
// ---------------------------------------------------------------------------

func (s *service) checkout(c echo.Context) error {
	var req leads.Contact
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid JSON payload"))
	}
	store, ok := s.existingCart(c)
	if !ok {
		store = cart.NewStore()
	}
	items := store.Items()
	l, err := s.intake.Checkout(c.Request().Context(), req, items)
	if err != nil {
		return s.leadError(c, err)
	}
	store.Settle(items)
	return c.JSON(http.StatusCreated, map[string]any{"item": l, "event_topic": topicPrefix + "checkout.created"})
}

func (s *service) quiz(c echo.Context) error {
	var req quizRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid JSON payload"))
	}
	l, err := s.intake.Quiz(c.Request().Context(), req.Contact, req.Answers)
	if err != nil {
		return s.leadError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"item": l, "event_topic": topicPrefix + "quiz.created"})
}

func (s *service) consultation(c echo.Context) error {
	var req leads.Contact
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid JSON payload"))
	}
	l, err := s.intake.Consultation(c.Request().Context(), req)
	if err != nil {
		return s.leadError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"item": l, "event_topic": topicPrefix + "consultation.created"})
}

func (s *service) leadError(c echo.Context, err error) error {
	var verr *leads.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, map[string]any{"error": verr.Error(), "fields": verr.Fields})
	case errors.Is(err, leads.ErrEmptyCart):
		return c.JSON(http.StatusBadRequest, errorBody(err.Error()))
	default:
		return err
	}
}

// ---------------------------------------------------------------------------
// HTTP helpers
// ---------------------------------------------------------------------------

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
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

func (s *service) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			c.Error(err)
		}
		req := c.Request()
		s.logger.Info("request",
			zap.String("method", req.Method),
			zap.String("route", c.Path()),
			zap.String("uri", req.RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("latency", time.Since(start)),
		)
		return nil
	}
}

func recoverer(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("panic recovered", zap.Any("panic", r), zap.String("route", c.Path()), zap.Stack("stack"))
					err = echo.NewHTTPError(http.StatusInternalServerError, "internal error")
				}
			}()
			return next(c)
		}
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
