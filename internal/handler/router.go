package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"go-inventory-sales/internal/apperror"
	"go-inventory-sales/internal/config"
	"go-inventory-sales/internal/middleware"
	"go-inventory-sales/internal/model"
	"go-inventory-sales/internal/service"
	"go-inventory-sales/internal/ws"
)

const (
	apiName    = "Inventory & Sales Analytics API"
	apiVersion = "1.0.0"

	rateLimitWindow = 15 * time.Minute
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Deps carries everything the HTTP layer needs. Hub may be nil.
type Deps struct {
	Config   *config.Config
	Log      *zap.Logger
	Auth     service.AuthService
	Products service.ProductService
	Sales    service.SaleService
	Reports  service.ReportService
	Uploads  service.UploadService
	Users    service.UserService
	Hub      *ws.Hub
	// HubContext bounds websocket sessions; they end when it is cancelled.
	HubContext context.Context
}

// NewApp builds the Fiber application with middleware and routes.
func NewApp(d Deps) *fiber.App {
	cfg := d.Config
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:      apiName + " v" + apiVersion,
		BodyLimit:    cfg.UploadMaxBytes + 1024*1024,
		ErrorHandler: ErrorHandler(log, cfg.IsProduction(), cfg.UploadMaxBytes),
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	app.Use(middleware.RequestLogger(log))
	app.Use(recover.New(recover.Config{EnableStackTrace: !cfg.IsProduction()}))
	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))
	app.Use(corsHandler(cfg.CORSOrigins))

	started := time.Now()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": apiName,
			"version": apiVersion,
			"status":  "running",
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "ok",
			"timestamp":   time.Now().UTC(),
			"uptime":      time.Since(started).Seconds(),
			"environment": cfg.Env,
		})
	})

	if d.Hub != nil && cfg.WSEnabled {
		hubCtx := d.HubContext
		if hubCtx == nil {
			hubCtx = context.Background()
		}
		registerWebsocket(hubCtx, app, d.Hub)
	}

	api := app.Group("/api",
		rateLimiter(cfg.APIRateLimit),
		middleware.DatastoreDeadline(cfg.Database.AcquireTimeout),
	)

	authHandler := NewAuthHandler(d.Auth)
	productHandler := NewProductHandler(d.Products)
	saleHandler := NewSaleHandler(d.Sales, d.Reports)
	dashHandler := NewDashboardHandler(d.Reports)
	uploadHandler := NewUploadHandler(d.Uploads, cfg.UploadMaxBytes)
	userHandler := NewUserHandler(d.Users)

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	authLimit := rateLimiter(cfg.AuthRateLimit)
	auth.Post("/register", authLimit, authHandler.Register)
	auth.Post("/login", authLimit, authHandler.Login)

	// ============ PROTECTED ROUTES ============
	requireAuth := middleware.RequireAuth(d.Auth)
	ownerOnly := middleware.RequireRole(model.RoleOwner)

	auth.Get("/me", requireAuth, authHandler.Me)

	products := api.Group("/products", requireAuth)
	products.Get("/", productHandler.GetProducts)
	products.Get("/alerts/low-stock", productHandler.GetLowStock)
	products.Get("/stats/by-category", productHandler.GetCategoryStats)
	products.Get("/:id", productHandler.GetProduct)
	products.Post("/", ownerOnly, productHandler.CreateProduct)
	products.Put("/:id", ownerOnly, productHandler.UpdateProduct)
	products.Delete("/:id", ownerOnly, productHandler.DeleteProduct)

	sales := api.Group("/sales", requireAuth)
	sales.Get("/", saleHandler.GetSales)
	sales.Get("/stats", saleHandler.GetDailyStats)
	sales.Get("/:id", saleHandler.GetSale)
	sales.Post("/", saleHandler.CreateSale)

	api.Get("/dashboard/stats", requireAuth, dashHandler.GetDashboardStats)

	upload := api.Group("/upload", requireAuth)
	upload.Post("/", uploadHandler.Upload)
	upload.Get("/history", uploadHandler.GetHistory)

	api.Get("/roles", requireAuth, GetRoles)

	users := api.Group("/users", requireAuth, ownerOnly)
	users.Get("/", userHandler.GetUsers)
	users.Get("/:id", userHandler.GetUser)
	users.Put("/:id/role", userHandler.UpdateUserRole)
	users.Delete("/:id", userHandler.DeleteUser)

	app.Use(NotFound)
	return app
}

func corsHandler(origins []string) fiber.Handler {
	allowOrigins := strings.Join(origins, ",")
	wildcard := allowOrigins == "" || strings.Contains(allowOrigins, "*")
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	return cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH",
		AllowHeaders:     "Content-Type,Authorization",
		AllowCredentials: !wildcard,
	})
}

// rateLimiter allows limit requests per client IP per window. A non-positive limit disables it.
func rateLimiter(limit int) fiber.Handler {
	if limit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: rateLimitWindow,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
				"kind":  "rate_limited",
			})
		},
	})
}

func registerWebsocket(ctx context.Context, app *fiber.App, hub *ws.Hub) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return apperror.New(apperror.KindValidation, "Websocket upgrade required")
	})
	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		hub.Serve(ctx, conn)
	}))
}
