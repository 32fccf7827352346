package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"figurehub/internal/auth"
	"figurehub/internal/catalog"
	"figurehub/internal/notify"
	"figurehub/internal/wishlist"
	"figurehub/pkg/database"
	"figurehub/pkg/shardstore"
	"figurehub/pkg/utils"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default figurehub.json if present)")
	flag.Parse()

	cfg, err := utils.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db := database.MustOpen(cfg.DBPath)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	store := shardstore.New(cfg.CatalogDir, cfg.BackupDir)
	loader := catalog.NewLoader(store)
	engine := catalog.NewEngine(loader)

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	hub := notify.NewHub()
	router.GET("/events", notify.WSHandler(hub))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "catalog_dir": cfg.CatalogDir, "db": cfg.DBPath})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "not_ready",
				"db_error": err.Error(),
			})
			return
		}

		col, err := loader.Load()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":        "not_ready",
				"catalog_error": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":         "ready",
			"db":             "ok",
			"records":        len(col.Records),
			"skipped_shards": len(col.Skipped),
			"ws_clients":     hub.Count(),
		})
	})

	// Catalog (public, read-only)
	catalogHandler := catalog.NewHandler(engine)
	catalogHandler.RegisterRoutes(router.Group(""))

	// Auth
	tokenSvc := auth.TokenService{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Duration: cfg.JWTDuration(),
	}
	authRepo := auth.NewRepo(db)
	authHandler := auth.NewHandler(authRepo, tokenSvc)
	authHandler.RegisterRoutes(router.Group("/auth"))

	// Protected routes
	protected := router.Group("/users")
	protected.Use(auth.AuthMiddleware(tokenSvc))

	protected.GET("/me", func(c *gin.Context) {
		claims := auth.MustGetClaims(c)
		u, err := authRepo.GetByID(c.Request.Context(), claims.UserID())
		if err != nil || u == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":       u.ID,
			"username": u.Username,
			"email":    u.Email,
		})
	})

	// Wishlist (protected)
	wlRepo := wishlist.NewRepo(db)
	wlHandler := wishlist.NewHandler(wlRepo, engine, hub)
	wlHandler.RegisterRoutes(protected)

	// Operators hit this after a catalog-field or catalog-split run so the
	// server drops its cached collection and clients hear about it.
	router.POST("/admin/reload", auth.AuthMiddleware(tokenSvc), func(c *gin.Context) {
		var req struct {
			RunID string `json:"run_id"`
		}
		_ = c.ShouldBindJSON(&req)

		loader.Invalidate()
		col, err := loader.Load()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "reload failed"})
			return
		}

		ev := notify.Event{Type: notify.CatalogReloaded, At: time.Now().UTC()}
		if req.RunID != "" {
			ev.Type = notify.CatalogMutated
			ev.RunID = req.RunID
		}
		go hub.BroadcastJSON(ev)

		c.JSON(http.StatusOK, gin.H{
			"records":        len(col.Records),
			"skipped_shards": len(col.Skipped),
		})
	})

	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP API server listening on %s", cfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	log.Println("server stopped")
}
