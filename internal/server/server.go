package server

import (
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/FaRaZ-32729/mushabaBackend/internal/auth"
	"github.com/FaRaZ-32729/mushabaBackend/internal/config"
	"github.com/FaRaZ-32729/mushabaBackend/internal/connection"
	"github.com/FaRaZ-32729/mushabaBackend/internal/db"
	"github.com/FaRaZ-32729/mushabaBackend/internal/location"
	"github.com/FaRaZ-32729/mushabaBackend/internal/stream"
	"github.com/FaRaZ-32729/mushabaBackend/internal/waypoint"
)

type Server struct {
	App     *fiber.App
	Cfg     config.Config
	Log     *logrus.Logger
	Stream  *stream.Hub
	Cache   *location.Cache
	Sweeper *location.Sweeper
}

func NewServer(cfg config.Config, q db.Querier, redisClient *redis.Client, log *logrus.Logger) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	hub := stream.NewHub(redisClient, log)
	cache := location.NewCache(cfg.CacheTTL())

	s := &Server{
		App:     app,
		Cfg:     cfg,
		Log:     log,
		Stream:  hub,
		Cache:   cache,
		Sweeper: location.NewSweeper(cache, cfg.SweepInterval(), log),
	}

	members := connection.NewService(q)
	store := location.NewStore(q, cfg.HistoryLength)
	locations := location.NewService(cache, store, members, hub, cfg.CacheTTL(), log)

	syncer := waypoint.NewSyncer(q, members, hub, log)
	waypoints := waypoint.NewService(q, members, syncer, log)

	registerRoutes(s, locations, waypoints)
	return s
}

func registerRoutes(s *Server, locations *location.Service, waypoints *waypoint.Service) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	location.RegisterRoutes(s.App.Group("/locations"), locations, jwtMiddleware)
	waypoint.RegisterRoutes(s.App.Group("/waypoints"), waypoints, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
