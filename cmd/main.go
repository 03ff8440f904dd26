package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"group-market/internal/auth"
	"group-market/internal/config"
	"group-market/internal/database"
	"group-market/internal/handlers"
	"group-market/internal/jobs"
	"group-market/internal/payment"
	"group-market/internal/repository"
	"group-market/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db := database.GetDB()

	// Initialize services
	sink := services.NewInboxSink(db)
	referralService := services.NewReferralService(db, sink)
	authService := services.NewAuthService(db, referralService)
	commissionService := services.NewCommissionService(db, sink)
	repo := repository.NewRepository(db)
	compensationService := services.NewCompensationService(db, repo, sink)
	groupBuyService := services.NewGroupBuyService(repo, commissionService, compensationService, sink)
	couponService := services.NewCouponService(db)

	// Payment verification gateway
	var gateway payment.Gateway
	if cfg.Solana.Network == "off" {
		gateway = &payment.StaticGateway{Approve: true}
	} else {
		gateway = payment.NewSolanaGateway(cfg.Solana.Network)
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	referralHandler := handlers.NewReferralHandler(referralService)
	commissionHandler := handlers.NewCommissionHandler(commissionService, gateway)
	groupBuyHandler := handlers.NewGroupBuyHandler(groupBuyService)
	couponHandler := handlers.NewCouponHandler(couponService)

	// Start background jobs
	sweep := jobs.NewGroupBuySweep(groupBuyService, cfg.App.GroupSweepInterval)
	go sweep.Start()
	log.Println("Group buy sweep started")

	couponExpiry := jobs.NewCouponExpiry(couponService, cfg.App.CouponSweepEvery)
	go couponExpiry.Start()
	log.Println("Coupon expiry job started")

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000", // Local development
		"http://localhost:3001",
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:3001",
		"http://127.0.0.1:5173",
	}
	// Add additional frontend URL from environment if provided
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/wallet", authHandler.WalletLogin)
		authRoutes.POST("/logout", authHandler.Logout)
	}

	// Authenticated /auth/me route
	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Referral endpoints
		api.GET("/referral/code", referralHandler.GetInviteCode)
		api.POST("/referral/bind", referralHandler.BindReferral)
		api.GET("/referral/info", referralHandler.GetReferralInfo)

		// Commission endpoints
		api.POST("/commissions/settle", commissionHandler.SettleCommission)
		api.GET("/commissions/my", commissionHandler.GetMyCommissions)
		api.GET("/commissions/order/:orderId", commissionHandler.GetOrderCommissions)

		// Group buy endpoints
		api.POST("/group-buys", groupBuyHandler.CreateGroupBuy)
		api.GET("/group-buys/my", groupBuyHandler.GetMyGroupBuys)
		api.GET("/group-buys/:id", groupBuyHandler.GetGroupBuy)
		api.POST("/group-buys/:id/join", groupBuyHandler.JoinGroupBuy)

		// Coupon endpoints
		api.GET("/coupons", couponHandler.GetMyCoupons)
		api.POST("/coupons/redeem", couponHandler.RedeemCoupon)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)
		log.Printf("Wallet auth: POST http://localhost:%s/auth/wallet", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	sweep.Stop()
	couponExpiry.Stop()

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
