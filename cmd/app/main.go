package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"nexora/cmd/fx/billing_fx"
	"nexora/cmd/fx/db_fx"
	"nexora/cmd/fx/mail_fx"
	"nexora/cmd/fx/ops_fx"
	"nexora/cmd/fx/redis_fx"
	"nexora/cmd/fx/webhook_fx"
	"nexora/internal/api/controllers"
	"nexora/internal/services"
	"nexora/pkg/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	app := fx.New(
		db_fx.Module,
		redis_fx.Module,
		billing_fx.Module,
		mail_fx.Module,
		webhook_fx.Module,
		ops_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := os.Getenv("PORT")
				if port == "" {
					port = "8080"
				}
				log.Printf("Starting HTTP server on :%s", port)
				if err := engine.Run(":" + port); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Println("Stopping HTTP server")
			return nil
		},
	})
}

func ProvideRouter(
	webhookController *controllers.WebhookController,
	opsController *controllers.OpsController,
	rateLimitStore services.RateLimitStore) *gin.Engine {

	r := gin.Default()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceIDMiddleware())

	RegisterRoutes(r, webhookController, opsController, rateLimitStore)

	return r
}

func RegisterRoutes(r *gin.Engine,
	webhookController *controllers.WebhookController,
	opsController *controllers.OpsController,
	rateLimitStore services.RateLimitStore) {

	// Rate limiting runs before signature verification: cheap rejection path.
	r.POST("/webhook", middleware.RateLimitMiddleware(rateLimitStore), webhookController.HandleWebhook)

	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(), middleware.RoleMiddleware("admin"))
	adminGroup.GET("/events", opsController.ListEvents)
	adminGroup.GET("/events/:eventId", opsController.GetEvent)
	adminGroup.POST("/events/:eventId/replay", opsController.ReplayEvent)
	adminGroup.GET("/plans", opsController.ListPlans)
	adminGroup.GET("/accounts/:accountId/billing", opsController.GetAccountBilling)
}
