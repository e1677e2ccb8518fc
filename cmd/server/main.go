package main

import (
	"context"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/kasuwahq/kasuwa/internal/api"
	"github.com/kasuwahq/kasuwa/internal/config"
	"github.com/kasuwahq/kasuwa/internal/db"
	"github.com/kasuwahq/kasuwa/internal/escrow"
	"github.com/kasuwahq/kasuwa/internal/ledger"
	mware "github.com/kasuwahq/kasuwa/internal/middleware"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	db.Init(cfg.DatabaseURL)

	store := escrow.NewPostgresStore(db.Conn)
	authz := escrow.NewPostgresAuthorizer(db.Conn)
	svc, err := escrow.NewService(store, authz, cfg.CommissionRate, cfg.PlatformAccountID)
	if err != nil {
		logrus.WithError(err).Fatal("invalid commission rate")
	}
	h := api.NewHandler(svc, ledger.NewPostgres(db.Conn))

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	// Health and root routes
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": "kasuwa"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		if db.Conn == nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db not initialized"})
		}
		if err := db.Conn.Ping(context.Background()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})

	// Authenticated routes
	g := e.Group("")
	g.Use(mware.JWT([]byte(cfg.JWTSecret)))

	g.POST("/payments/escrow/capture", h.Capture)
	g.GET("/payments/check-transaction/:reference", h.CheckTransaction)

	g.POST("/escrow/:id/confirm", h.BuyerConfirm, mware.RequireRoles("buyer"))
	g.GET("/escrow/buyer/dashboard", h.BuyerDashboard)
	g.GET("/escrow/seller/dashboard", h.SellerDashboard, mware.RequireRoles("seller"))

	g.GET("/wallet/balance", h.WalletBalance)
	g.GET("/wallet/entries", h.WalletEntries)

	// Admin routes
	admin := e.Group("/admin")
	admin.Use(mware.JWT([]byte(cfg.JWTSecret)))
	admin.Use(mware.AdminGuard)

	admin.POST("/escrow/:id/release", h.Release)
	admin.POST("/escrow/:id/cancel", h.Cancel)
	admin.GET("/escrow/transactions", h.AdminTransactions)
	admin.GET("/escrow/revenue", h.AdminRevenue)
	admin.GET("/ledger/entries", h.AdminLedgerEntries)

	logrus.WithField("port", cfg.Port).Info("escrow service listening")
	if err := e.Start(":" + cfg.Port); err != nil {
		logrus.WithError(err).Fatal("server error")
	}
}
