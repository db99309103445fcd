package main

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/safar/go-marketplace/internal/cart"
	"github.com/safar/go-marketplace/internal/config"
	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/earnings"
	"github.com/safar/go-marketplace/internal/pricing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database successfully")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer redisClient.Close()

	app := newApp(db, cfg,
		cart.NewGuestStore(redisClient, cfg.Redis.GuestTTL),
		cart.NewPostgresStore(db, cfg.Cart.BackendTimeout),
	)

	r := chi.NewRouter()

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", app.handleGetCart)
		r.Post("/add", app.handleAddToCart)
		r.Put("/item/{productID}", app.handleUpdateCartItem)
		r.Delete("/item/{productID}", app.handleRemoveCartItem)
		r.Delete("/", app.handleClearCart)
		r.Post("/merge", app.handleMergeCart)
		r.Get("/totals", app.handleCartTotals)
	})

	r.Post("/checkout", app.handleCheckout)

	r.Route("/orders/seller", func(r chi.Router) {
		r.Get("/", app.handleListSellerOrders)
		r.Get("/earnings", app.handleSellerEarnings)
		r.Get("/{orderID}", app.handleGetSellerOrder)
		r.Put("/status", app.handleUpdateOrderStatus)
	})

	r.Post("/users", app.handleCreateUser)
	r.Get("/users", app.handleListUsers)
	r.Get("/users/{userID}", app.handleGetUser)
	r.Post("/products", app.handleCreateProduct)
	r.Get("/products", app.handleListProducts)
	r.Get("/products/{productID}", app.handleGetProduct)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("Server starting on port %s", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func newApp(db *sql.DB, cfg *config.Config, guest *cart.GuestStore, authed *cart.PostgresStore) *app {
	return &app{
		db:     db,
		guest:  guest,
		authed: authed,
		merger: cart.NewMerger(guest, authed),
		ledger: earnings.NewLedger(sellerOrdersSource(db), cfg.Earnings.HoldPeriod),
		policy: pricing.Policy{
			FreeShippingThreshold: cfg.Pricing.FreeShippingThreshold,
			FlatShippingFee:       cfg.Pricing.FlatShippingFee,
		},
	}
}
