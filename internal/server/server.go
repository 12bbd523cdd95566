package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/kitchin/internal/backup"
	"github.com/dukerupert/kitchin/internal/foodfacts"
	"github.com/dukerupert/kitchin/internal/handler"
	"github.com/dukerupert/kitchin/internal/kitchen"
	"github.com/dukerupert/kitchin/internal/metrics"
	"github.com/dukerupert/kitchin/internal/middleware"
	"github.com/dukerupert/kitchin/internal/store"
	ws "github.com/dukerupert/kitchin/internal/websocket"
)

// Options carries the components the server routes to. Backup and FoodFacts
// may be nil.
type Options struct {
	DB             *sql.DB
	Store          *store.Store
	Kitchen        *kitchen.Kitchen
	Hub            *ws.Hub
	Metrics        *metrics.Metrics
	FoodFacts      *foodfacts.Client
	Backup         *backup.Manager
	VAPIDPublicKey string
	SessionSecret  []byte
	JoinLimiter    *middleware.RateLimiter
	Now            func() time.Time
	Logger         *slog.Logger
}

type Server struct {
	db            *sql.DB
	householdH    *handler.HouseholdHandler
	kitchenH      *handler.KitchenHandler
	groceryH      *handler.GroceryHandler
	recipeH       *handler.RecipeHandler
	pushH         *handler.PushHandler
	barcodeH      *handler.BarcodeHandler
	metrics       *metrics.Metrics
	backupManager *backup.Manager
	rateLimiter   *middleware.RateLimiter
	secret        []byte
	now           func() time.Time
	logger        *slog.Logger
}

func New(o Options) *Server {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.JoinLimiter == nil {
		o.JoinLimiter = middleware.NewRateLimiter(10, time.Minute)
	}

	s := &Server{
		db:            o.DB,
		householdH:    handler.NewHouseholdHandler(o.Kitchen, o.Hub, logger.With("component", "household")),
		kitchenH:      handler.NewKitchenHandler(o.Kitchen, logger.With("component", "inventory")),
		groceryH:      handler.NewGroceryHandler(o.Kitchen, logger.With("component", "grocery")),
		recipeH:       handler.NewRecipeHandler(o.Kitchen, logger.With("component", "recipe")),
		pushH:         handler.NewPushHandler(o.Store, o.VAPIDPublicKey, logger.With("component", "push_handler")),
		metrics:       o.Metrics,
		backupManager: o.Backup,
		rateLimiter:   o.JoinLimiter,
		secret:        o.SessionSecret,
		now:           o.Now,
		logger:        logger,
	}
	if o.FoodFacts != nil {
		s.barcodeH = handler.NewBarcodeHandler(o.FoodFacts, logger.With("component", "barcode"))
	}
	return s
}

// RateLimiter returns the join rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.Handle("GET /metrics", s.metrics.Handler())

	// Protected routes, wrapped with RequireAccount middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAccount(s.secret, s.now)
	outerMux.Handle("/", authMiddleware(middleware.TagAccount(protectedMux)))

	// Apply request logging middleware
	return middleware.RequestLogger(s.logger.With("component", "http"), s.metrics)(outerMux)
}

type healthResponse struct {
	Status   string         `json:"status"`
	Database string         `json:"database"`
	Backup   *backup.Status `json:"backup,omitempty"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "ok"}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("health check ping", "error", err)
		resp.Status = "degraded"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}
	if s.backupManager != nil {
		bs := s.backupManager.Status()
		resp.Backup = &bs
	}
	writeJSON(w, status, resp)
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.AccountOrIP)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Household routes
	mux.HandleFunc("GET /api/households", s.householdH.List)
	mux.HandleFunc("POST /api/households", s.householdH.Create)
	mux.HandleFunc("POST /api/households/join", s.rateLimitedHandler(s.householdH.Join))
	mux.HandleFunc("GET /api/households/{id}", s.householdH.Fetch)
	mux.HandleFunc("PATCH /api/households/{id}", s.householdH.Update)
	mux.HandleFunc("DELETE /api/households/{id}", s.householdH.Delete)
	mux.HandleFunc("POST /api/households/{id}/leave", s.householdH.Leave)
	mux.HandleFunc("POST /api/households/{id}/admin", s.householdH.TransferAdmin)
	mux.HandleFunc("GET /api/households/{id}/ws", s.householdH.Live)

	// Kitchen inventory routes
	mux.HandleFunc("POST /api/households/{id}/kitchen/{zone}", s.kitchenH.AddItem)
	mux.HandleFunc("PATCH /api/households/{id}/kitchen/{zone}/{item}", s.kitchenH.UpdateItem)
	mux.HandleFunc("DELETE /api/households/{id}/kitchen/{zone}/{item}", s.kitchenH.RemoveItem)
	mux.HandleFunc("POST /api/households/{id}/kitchen/{zone}/{item}/move", s.kitchenH.MoveItem)
	mux.HandleFunc("GET /api/households/{id}/expiring", s.kitchenH.Expiring)

	// Grocery routes
	mux.HandleFunc("POST /api/households/{id}/grocery", s.groceryH.CreateItem)
	mux.HandleFunc("PATCH /api/households/{id}/grocery/{item}", s.groceryH.UpdateItem)
	mux.HandleFunc("DELETE /api/households/{id}/grocery/{item}", s.groceryH.DeleteItem)
	mux.HandleFunc("POST /api/households/{id}/grocery/clear-checked", s.groceryH.ClearChecked)

	// Recipe routes
	mux.HandleFunc("POST /api/households/{id}/recipes", s.recipeH.Create)
	mux.HandleFunc("PATCH /api/households/{id}/recipes/{item}", s.recipeH.Update)
	mux.HandleFunc("DELETE /api/households/{id}/recipes/{item}", s.recipeH.Delete)

	// Push notification routes
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/subscriptions", s.pushH.Subscribe)
	mux.HandleFunc("DELETE /api/push/subscriptions", s.pushH.Unsubscribe)

	if s.barcodeH != nil {
		mux.HandleFunc("GET /api/barcodes/{barcode}", s.barcodeH.Lookup)
	}
}
