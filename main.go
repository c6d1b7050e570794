package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"

	"afyacare_backend/internals/configs"
	database "afyacare_backend/internals/databases"
	"afyacare_backend/internals/middlewares"
	"afyacare_backend/internals/route"
	"afyacare_backend/internals/schedulers"

	paymentService "afyacare_backend/internals/features/billing/payments/service"
)

func main() {
	configs.LoadEnv()

	database.ConnectDB()
	database.TunePool()
	database.Migrate()
	database.WarmUpQueries()

	app := fiber.New(fiber.Config{
		AppName:     "AfyaCare Backend",
		JSONEncoder: sonic.Marshal,
		JSONDecoder: sonic.Unmarshal,
		ReadTimeout: 15 * time.Second,
	})

	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	app.Use(etag.New())

	middlewares.SetupMiddlewares(app, database.DB)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "time": time.Now().Format(time.RFC3339)})
	})

	// one settlement service shared by the HTTP layer and the schedulers
	settlement := paymentService.NewSettlementService(database.DB, paymentService.NewMpesaClient())

	route.SetupRoutes(app, database.DB, settlement)
	schedulers.StartBillingSchedulers(database.DB, settlement)

	// graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("🛑 Shutting down...")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	port := configs.GetEnv("PORT", "8080")
	log.Printf("🚀 AfyaCare backend listening on :%s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("❌ server stopped: %v", err)
	}
}
