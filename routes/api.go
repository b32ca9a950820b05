package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/SanAntonik/MRS/client"
	"github.com/SanAntonik/MRS/config"
	"github.com/SanAntonik/MRS/flow"
	"github.com/SanAntonik/MRS/forms"
	m "github.com/SanAntonik/MRS/models"
	"github.com/SanAntonik/MRS/notify"
	"github.com/SanAntonik/MRS/qcache"
	"github.com/SanAntonik/MRS/session"
	"github.com/SanAntonik/MRS/views"
)

// Cache keys shared by the handlers and their invalidation hooks.
const (
	cacheKeyItems       = "items"
	cacheKeyCurrentUser = "currentUser"
)

var limiter = rate.NewLimiter(5, 10)

func rateLimitMiddleware(c *gin.Context) {
	if !limiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"detail": "Too many requests"})
		c.Abort()
		return
	}
	c.Next()
}

func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Next()
	}
}

// API wires the console's HTTP surface to its collaborators. Everything
// is injected so handlers can be tested against mocks.
type API struct {
	Catalog client.CatalogService
	Config  config.ConfigService
	Session *session.Store
	Cache   *qcache.Cache
	Search  *flow.Flow
	Logger  zerolog.Logger
}

func (a *API) setupCORS() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = a.Config.AllowedOrigins()
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization"}
	cfg.AllowCredentials = true
	cfg.MaxAge = 12 * time.Hour
	return cfg
}

// Router assembles the gin engine with all middleware and routes.
func (a *API) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(a.requestLogger())
	router.Use(securityHeadersMiddleware())
	if gin.Mode() != gin.TestMode {
		router.Use(rateLimitMiddleware)
	}
	router.Use(cors.New(a.setupCORS()))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/login", a.handleLogin)
	router.POST("/logout", a.handleLogout)
	router.POST("/register", a.handleRegister)

	router.GET("/nav", a.handleNav)
	router.GET("/me", a.handleCurrentUser)

	router.GET("/items", a.handleListItems)
	router.GET("/items/:id", a.handleGetItem)
	router.POST("/items", a.handleCreateItem)
	router.PUT("/items/:id", a.handleUpdateItem)
	router.DELETE("/items/:id", a.handleDeleteItem)

	router.POST("/recommender", a.handleRecommender)

	return router
}

func (a *API) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.Logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

// respondError converts a facade failure into a JSON error body.
// Transport failures (status 0) surface as 502.
func (a *API) respondError(c *gin.Context, err error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.Status
		if status == 0 {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"detail": apiErr.Detail.String()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
}

// respondWithNotifications reports a facade failure together with the
// toast events the form produced for it.
func (a *API) respondWithNotifications(c *gin.Context, err error, recorder *notify.Recorder) {
	var apiErr *client.APIError
	status := http.StatusBadGateway
	detail := err.Error()
	if errors.As(err, &apiErr) {
		if apiErr.Status != 0 {
			status = apiErr.Status
		}
		detail = apiErr.Detail.String()
	}
	c.JSON(status, gin.H{"detail": detail, "notifications": recorder.Drain()})
}

func (a *API) handleLogin(c *gin.Context) {
	var loginData struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&loginData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid login data"})
		return
	}

	token, err := a.Catalog.Login(c.Request.Context(), loginData.Username, loginData.Password)
	if err != nil {
		a.respondError(c, err)
		return
	}

	a.Session.SetToken(token.AccessToken)
	a.Cache.Invalidate(cacheKeyCurrentUser)
	c.JSON(http.StatusOK, token)
}

func (a *API) handleLogout(c *gin.Context) {
	a.Session.Clear()
	a.Cache.Reset()
	c.JSON(http.StatusOK, m.Message{Message: "Logged out"})
}

func (a *API) handleRegister(c *gin.Context) {
	// Already logged in: the register page redirects home.
	if a.Session.LoggedIn() {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid registration data"})
		return
	}

	form := forms.NewRegisterForm()
	form.SetEmail(input.Email)
	form.SetPassword(input.Password)
	form.SetFullName(input.FullName)

	recorder := new(notify.Recorder)
	err := form.Submit(c.Request.Context(), a.Catalog, recorder)
	if errors.Is(err, forms.ErrInvalid) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"field_errors": form.FieldErrors()})
		return
	}
	if err != nil {
		a.respondWithNotifications(c, err, recorder)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"notifications": recorder.Drain()})
}

type navEntry struct {
	Title string `json:"title"`
	Path  string `json:"path"`
}

func (a *API) handleNav(c *gin.Context) {
	entries := []navEntry{
		{"Dashboard", "/"},
		{"Recommender", "/recommender"},
		{"Movies", "/items"},
		{"Search for a Movie", "/search"},
		{"User Settings", "/settings"},
	}

	// The admin entry shows only for superusers with a live session.
	if a.Session.LoggedIn() {
		if user, err := a.currentUser(c.Request.Context()); err == nil && user.IsSuperuser {
			entries = append(entries, navEntry{"Admin", "/admin"})
		}
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}

func (a *API) handleCurrentUser(c *gin.Context) {
	if !a.Session.LoggedIn() {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
		return
	}
	user, err := a.currentUser(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (a *API) currentUser(ctx context.Context) (m.User, error) {
	value, err := a.Cache.Get(cacheKeyCurrentUser, func() (any, error) {
		return a.Catalog.CurrentUser(ctx)
	})
	if err != nil {
		return m.User{}, err
	}
	user := value.(m.User)
	a.Session.SetUser(user)
	return user, nil
}

func (a *API) listItems(ctx context.Context) (m.ItemCollection, error) {
	value, err := a.Cache.Get(cacheKeyItems, func() (any, error) {
		return a.Catalog.ListItems(ctx, 0, 100)
	})
	if err != nil {
		return m.ItemCollection{}, err
	}
	return value.(m.ItemCollection), nil
}

func (a *API) handleListItems(c *gin.Context) {
	col, err := a.listItems(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"columns": views.ListColumns,
		"rows":    views.ListRows(col.Data),
		"count":   col.Count,
	})
}

func (a *API) handleGetItem(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid item id"})
		return
	}
	item, err := a.Catalog.GetItem(c.Request.Context(), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (a *API) handleCreateItem(c *gin.Context) {
	var input map[string]any
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid item data"})
		return
	}

	form := forms.NewCreateItemForm()
	applyFields(form, input)

	recorder := new(notify.Recorder)
	err := form.Submit(c.Request.Context(), a.Catalog, recorder, func() {
		a.Cache.Invalidate(cacheKeyItems)
	})
	if errors.Is(err, forms.ErrInvalid) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"field_errors": form.FieldErrors()})
		return
	}
	if err != nil {
		a.respondWithNotifications(c, err, recorder)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"notifications": recorder.Drain()})
}

func (a *API) handleUpdateItem(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid item id"})
		return
	}

	var input map[string]any
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid item data"})
		return
	}

	// Seed the edit form from the current remote state so the patch only
	// carries fields the caller actually changed.
	item, err := a.Catalog.GetItem(c.Request.Context(), id)
	if err != nil {
		a.respondError(c, err)
		return
	}

	form := forms.NewEditItemForm(item)
	applyFields(form, input)

	recorder := new(notify.Recorder)
	err = form.Submit(c.Request.Context(), a.Catalog, recorder, func() {
		a.Cache.Invalidate(cacheKeyItems)
	})
	if errors.Is(err, forms.ErrNothingToSubmit) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No fields changed"})
		return
	}
	if errors.Is(err, forms.ErrInvalid) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"field_errors": form.FieldErrors()})
		return
	}
	if err != nil {
		a.respondWithNotifications(c, err, recorder)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": recorder.Drain()})
}

func (a *API) handleDeleteItem(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid item id"})
		return
	}

	msg, err := a.Catalog.DeleteItem(c.Request.Context(), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	a.Cache.Invalidate(cacheKeyItems)
	c.JSON(http.StatusOK, msg)
}

func applyFields(form *forms.ItemForm, input map[string]any) {
	for _, field := range forms.ItemFields {
		if value, ok := input[string(field)]; ok {
			form.Set(field, fieldString(value))
		}
	}
}

// fieldString renders a JSON field value the way the form expects it:
// numbers without a trailing zero fraction, null as empty.
func fieldString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (a *API) handleRecommender(c *gin.Context) {
	var input struct {
		InputTitle string `json:"input_title"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.InputTitle == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "input_title is required"})
		return
	}

	snap := a.Search.Search(c.Request.Context(), input.InputTitle)

	response := gin.H{
		"phase": snap.Phase,
		"query": snap.Query,
	}
	switch snap.Phase {
	case flow.Resolved:
		response["match_title"] = snap.Match.Title
		response["match"] = views.RecommenderRow(snap.Match)
		response["columns"] = views.RecommenderColumns
		response["recommendations"] = views.RecommenderRows(snap.Recommendations.Data)
	case flow.Failed:
		response["detail"] = snap.ErrorDetail
	}
	c.JSON(http.StatusOK, response)
}

// Expose starts the console server and blocks until a shutdown signal.
func Expose(api *API) {
	router := api.Router()

	srv := &http.Server{
		Addr:         ":" + api.Config.ServerPort(),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			api.Logger.Fatal().Err(err).Msg("failed to initialize server")
		}
	}()
	api.Logger.Info().Str("addr", srv.Addr).Msg("console listening")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	api.Logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		api.Logger.Fatal().Err(err).Msg("server forced to shutdown")
	}
	api.Logger.Info().Msg("server exiting")
}
