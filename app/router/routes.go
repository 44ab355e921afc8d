// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/amirphl/academy-ledger/app/dto"
	"github.com/amirphl/academy-ledger/app/handlers"
	"github.com/amirphl/academy-ledger/app/middleware"
	"github.com/amirphl/academy-ledger/config"
	"github.com/amirphl/academy-ledger/models"
	"github.com/amirphl/academy-ledger/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	Shutdown(timeout time.Duration) error
	GetApp() *fiber.App
}

// Handlers groups every handler the router mounts
type Handlers struct {
	Auth    handlers.AuthHandlerInterface
	Sale    handlers.SaleHandlerInterface
	Kpi     handlers.KpiHandlerInterface
	Fund    handlers.FundHandlerInterface
	Catalog handlers.CatalogHandlerInterface
	Seller  handlers.SellerHandlerInterface
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app            *fiber.App
	cfg            *config.ProductionConfig
	logger         *logrus.Logger
	handlers       Handlers
	authMiddleware *middleware.AuthMiddleware
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(cfg *config.ProductionConfig, logger *logrus.Logger, h Handlers, authMiddleware *middleware.AuthMiddleware) Router {
	app := fiber.New(fiber.Config{
		AppName:      "Academy Ledger API",
		ServerHeader: "academy-ledger",
		ErrorHandler: errorHandler(logger),
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		TrustProxy:   len(cfg.Server.TrustedProxies) > 0,
		TrustProxyConfig: fiber.TrustProxyConfig{
			Proxies: cfg.Server.TrustedProxies,
		},
		ProxyHeader: cfg.Server.ProxyHeader,
	})

	return &FiberRouter{
		app:            app,
		cfg:            cfg,
		logger:         logger,
		handlers:       h,
		authMiddleware: authMiddleware,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.logger.Info("Setting up routes...")

	r.setupMiddleware()

	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.PrometheusPath, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	api.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.GlobalRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	// Auth routes with stricter rate limiting
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.AuthRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
	}))
	auth.Post("/login", r.handlers.Auth.Login)
	auth.Post("/refresh", r.handlers.Auth.Refresh)
	auth.Post("/logout", r.authMiddleware.Authenticate(), r.handlers.Auth.Logout)

	authenticated := r.authMiddleware.Authenticate()
	owner := middleware.RequireRoles(models.UserRoleOwner, models.UserRoleAdmin)
	anyRole := middleware.RequireRoles(models.UserRoleOwner, models.UserRoleAdmin, models.UserRoleSeller)

	// Sales: sellers record and read their own, the flow scopes what they see
	sales := api.Group("/sales", authenticated)
	sales.Post("", anyRole, r.handlers.Sale.RecordSale)
	sales.Get("", anyRole, r.handlers.Sale.ListSales)
	sales.Get("/export", owner, r.handlers.Sale.ExportSales)
	sales.Get("/:id", anyRole, r.handlers.Sale.GetSale)
	sales.Delete("/:id", owner, r.handlers.Sale.DeleteSale)

	kpi := api.Group("/kpi", authenticated, owner)
	kpi.Get("", r.handlers.Kpi.GetMonthlyKpiSeries)
	kpi.Get("/export", r.handlers.Kpi.ExportMonthlyKpiSeries)
	kpi.Post("/compute", r.handlers.Kpi.ComputeMonthlyMetrics)

	funds := api.Group("/funds", authenticated, owner)
	funds.Post("/buckets", r.handlers.Fund.CreateBucket)
	funds.Get("/tree", r.handlers.Fund.GetBucketTree)
	funds.Post("/expenses", r.handlers.Fund.RecordExpense)
	funds.Get("/expenses", r.handlers.Fund.ListExpenses)
	funds.Delete("/expenses/:id", r.handlers.Fund.DeleteExpense)

	salaries := api.Group("/salaries", authenticated, owner)
	salaries.Post("/recipients", r.handlers.Fund.CreateSalaryRecipient)
	salaries.Get("/recipients", r.handlers.Fund.ListSalaryRecipients)
	salaries.Post("/payments", r.handlers.Fund.RecordSalaryPayment)
	salaries.Get("/payments", r.handlers.Fund.ListSalaryPayments)

	courses := api.Group("/courses", authenticated)
	courses.Get("", anyRole, r.handlers.Catalog.ListCourses)
	courses.Post("", owner, r.handlers.Catalog.CreateCourse)
	courses.Put("/:id", owner, r.handlers.Catalog.UpdateCourse)
	courses.Delete("/:id", owner, r.handlers.Catalog.DeleteCourse)

	discounts := api.Group("/discounts", authenticated)
	discounts.Get("", anyRole, r.handlers.Catalog.ListDiscounts)
	discounts.Post("", owner, r.handlers.Catalog.CreateDiscount)
	discounts.Put("/:id/active", owner, r.handlers.Catalog.SetDiscountActive)
	discounts.Delete("/:id", owner, r.handlers.Catalog.DeleteDiscount)

	templates := api.Group("/templates", authenticated, owner)
	templates.Get("", r.handlers.Catalog.ListTemplates)
	templates.Post("", r.handlers.Catalog.CreateTemplate)
	templates.Put("/:id", r.handlers.Catalog.UpdateTemplate)

	sellers := api.Group("/sellers", authenticated)
	sellers.Get("/me", anyRole, r.handlers.Seller.GetOwnSeller)
	sellers.Get("", owner, r.handlers.Seller.ListSellers)
	sellers.Post("", owner, r.handlers.Seller.CreateSeller)
	sellers.Get("/:id", anyRole, r.handlers.Seller.GetSeller)
	sellers.Get("/:id/level-history", anyRole, r.handlers.Seller.GetLevelHistory)
	sellers.Delete("/:id", owner, r.handlers.Seller.DeleteSeller)

	levelRules := api.Group("/level-rules", authenticated)
	levelRules.Get("", anyRole, r.handlers.Seller.GetLevelRules)
	levelRules.Put("", owner, r.handlers.Seller.UpdateLevelRules)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	r.logger.Info("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header:    "X-Request-ID",
		Generator: generateRequestID,
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.WithFields(logrus.Fields{
				"request_id": requestid.FromContext(c),
				"event":      "panic",
				"path":       c.Path(),
				"method":     c.Method(),
				"ip":         c.IP(),
			}).Errorf("recovered from panic: %v", e)
		},
	}))

	if r.cfg.Server.EnableMetrics {
		r.app.Use(middleware.Metrics())
	}

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000,
		ContentSecurityPolicy:     "default-src 'none'; frame-ancestors 'none';",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-site",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           r.cfg.Security.CORSMaxAge,
	}))

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
		}))
	}

	if r.cfg.Logging.EnableAccessLog {
		r.app.Use(logger.New(logger.Config{
			Format:     `{"time":"${time}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "UTC",
			Stream:     r.logger.Writer(),
			Next: func(c fiber.Ctx) bool {
				return c.Path() == "/api/v1/health"
			},
		}))
	}
}

func (r *FiberRouter) Start(address string) error {
	r.logger.WithField("address", address).Info("Starting server")
	return r.app.Listen(address, fiber.ListenConfig{DisableStartupMessage: true})
}

func (r *FiberRouter) Shutdown(timeout time.Duration) error {
	return r.app.ShutdownWithTimeout(timeout)
}

func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":      "ok",
			"timestamp":   utils.UTCNow().Unix(),
			"version":     r.cfg.Deployment.Version,
			"environment": r.cfg.Deployment.Environment,
			"service":     "academy-ledger-api",
		},
	})
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

func rateLimitReached(c fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
		Success: false,
		Message: "Too many requests. Please try again later.",
		Error: dto.ErrorDetail{
			Code: "RATE_LIMIT_EXCEEDED",
		},
	})
}

// errorHandler answers errors that escape the handlers, such as routing errors and panics
func errorHandler(log *logrus.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			message = e.Message
		}

		if code >= fiber.StatusInternalServerError {
			log.WithFields(logrus.Fields{
				"request_id": requestid.FromContext(c),
				"path":       c.Path(),
				"method":     c.Method(),
			}).WithError(err).Error("unhandled request error")
		}

		return c.Status(code).JSON(dto.APIResponse{
			Success: false,
			Message: message,
			Error: dto.ErrorDetail{
				Code: "INTERNAL_ERROR",
			},
		})
	}
}

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return utils.UTCNow().Format("20060102150405.000000")
	}
	return hex.EncodeToString(bytes)
}
