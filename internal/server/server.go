package server

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"collab-backend/internal/auth"
	"collab-backend/internal/config"
	"collab-backend/internal/handler"
	"collab-backend/internal/hub"
	"collab-backend/internal/middleware"
	"collab-backend/internal/presence"
	"collab-backend/internal/service"
	"collab-backend/internal/store"
)

// Server Fiber server wrapper wiring the sync engine together
type Server struct {
	app            *fiber.App
	cfg            *config.Config
	db             *gorm.DB
	hub            *hub.Hub
	mirror         *presence.Manager
	directory      *service.Directory
	boardHandler   *handler.BoardHandler
	boardWSHandler *handler.BoardWSHandler
	healthHandler  *handler.HealthHandler
	orgMiddleware  *middleware.OrganizationMiddleware
	jwtManager     *auth.JWTManager
}

// New creates a server instance
func New(cfg *config.Config, db *gorm.DB) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "Whiteboard Sync Engine",
		ServerHeader:          "Fiber",
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		Prefork:               false, // incompatible with WebSocket state
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,
		BodyLimit:             10 * 1024 * 1024,
		DisableStartupMessage: false,
	})

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)

	var mirror *presence.Manager
	if cfg.Sync.MirrorEnabled {
		mirror = presence.NewManager(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		log.Printf("✅ Presence mirror enabled (redis: %s)", cfg.Redis.Addr)
	} else {
		log.Println("ℹ️ Presence mirror disabled")
	}

	directory := service.NewDirectory(db)
	boards := service.NewWhiteboardService(store.NewGormStore(db), directory)

	var hubMirror hub.Mirror
	if mirror != nil {
		hubMirror = mirror
	}
	h := hub.New(boards, hubMirror, cfg.Sync.QuietPeriod, cfg.Sync.RoomBuffer)

	return &Server{
		app:            app,
		cfg:            cfg,
		db:             db,
		hub:            h,
		mirror:         mirror,
		directory:      directory,
		boardHandler:   handler.NewBoardHandler(boards, h),
		boardWSHandler: handler.NewBoardWSHandler(h, boards),
		healthHandler:  handler.NewHealthHandler(db, mirror, h),
		orgMiddleware:  middleware.NewOrganizationMiddleware(directory),
		jwtManager:     jwtManager,
	}
}

// SetupMiddleware installs global middleware
func (s *Server) SetupMiddleware() {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORS.AllowOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))
}

// SetupRoutes installs all routes
func (s *Server) SetupRoutes() {
	s.app.Get("/health", s.healthHandler.Check)
	s.app.Get("/health/live", s.healthHandler.Liveness)
	s.app.Get("/health/ready", s.healthHandler.Readiness)

	// Rate limiter for the REST surface (per IP)
	apiLimiter := limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	})

	// Board REST routes, organization scoped
	orgGroup := s.app.Group("/api/orgs/:orgId",
		apiLimiter,
		auth.AuthMiddleware(s.jwtManager),
		s.orgMiddleware.RequireMembership(),
	)
	orgGroup.Get("/boards", s.boardHandler.GetBoard)
	orgGroup.Get("/boards/presence", s.boardHandler.GetPresence)
	orgGroup.Put("/boards/:key/title", s.boardHandler.UpdateTitle)
	orgGroup.Put("/boards/:key/thumbnail", s.boardHandler.UpdateThumbnail)
	orgGroup.Delete("/boards/:id", s.boardHandler.DeleteBoard)

	// WebSocket upgrade check
	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// Board sync endpoint. The upgrade gate validates the cookie token and
	// organization membership before the protocol starts.
	s.app.Get("/ws/board/:orgId", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		accessToken := c.Cookies("access_token")
		if accessToken == "" {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		claims, err := s.jwtManager.ValidateAccessToken(accessToken)
		if err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		orgID, err := c.ParamsInt("orgId")
		if err != nil || orgID <= 0 {
			return c.SendStatus(fiber.StatusBadRequest)
		}

		if !s.directory.IsOrganizationMember(int64(orgID), claims.UserID) {
			return c.SendStatus(fiber.StatusForbidden)
		}

		// Display names can change after a token is issued, so resolve the
		// current one from the directory and fall back to the claim.
		nickname := claims.Nickname
		if user, uerr := s.directory.GetUserByID(claims.UserID); uerr == nil {
			nickname = user.Nickname
		}

		c.Locals("userID", claims.UserID)
		c.Locals("nickname", nickname)
		c.Locals("orgID", int64(orgID))

		return c.Next()
	}, websocket.New(s.boardWSHandler.HandleWebSocket, websocket.Config{
		ReadBufferSize:   s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize:  s.cfg.WebSocket.WriteBufferSize,
		HandshakeTimeout: s.cfg.WebSocket.HandshakeTimeout,
	}))
}

// Start runs the server with graceful shutdown. Pending snapshots are flushed
// before the process exits.
func (s *Server) Start() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("🛑 Shutting down server...")
		if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Fatalf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("🚀 Whiteboard sync engine starting on %s", s.cfg.Server.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost%s/ws/board/:orgId", s.cfg.Server.Port)

	err := s.app.Listen(s.cfg.Server.Port)

	s.hub.Shutdown()
	if s.mirror != nil {
		if cerr := s.mirror.Close(); cerr != nil {
			log.Printf("[Presence] close failed: %v", cerr)
		}
	}

	return err
}

// Shutdown stops the server and flushes pending board state
func (s *Server) Shutdown() error {
	err := s.app.ShutdownWithTimeout(30 * time.Second)
	s.hub.Shutdown()
	return err
}
