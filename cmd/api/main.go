package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/allevapp/allevapp/internal/config"
	"github.com/allevapp/allevapp/internal/farms"
	"github.com/allevapp/allevapp/internal/graph"
	"github.com/allevapp/allevapp/internal/httpx"
	kafkax "github.com/allevapp/allevapp/internal/kafka"
	"github.com/allevapp/allevapp/internal/notify"
	"github.com/allevapp/allevapp/internal/orders"
	"github.com/allevapp/allevapp/internal/postgres"
	"github.com/allevapp/allevapp/internal/redisx"
	"github.com/allevapp/allevapp/internal/reports"
	"github.com/allevapp/allevapp/internal/users"
	"github.com/joho/godotenv"
)

// Aliases give the embedded repos distinct field names.
type (
	reportsRepo = reports.Repo
	ordersRepo  = orders.Repo
)

// dashboardStore joins the counters the dashboard needs from each repo.
type dashboardStore struct {
	*reportsRepo
	*ordersRepo
	farms.MaintenanceStore
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	if cfg.RunMigrations {
		if err := postgres.Migrate(ctx, cfg.PostgresDSN); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	store := redisx.Store{RDB: rdb}

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024)
	prod.Start()

	gcfg := graph.Config(cfg.Microsoft)
	mail := graph.New(gcfg, nil)
	if missing := gcfg.Missing(); len(missing) > 0 {
		log.Printf("microsoft graph not configured, missing %v: email and calendar calls will fail", missing)
	}
	svc := notify.NewService(db, mail, store, cfg.AppBaseURL, cfg.ServiceName)

	// Repos & handlers
	ords := &orders.Repo{DB: db}
	reps := &reports.Repo{DB: db}
	maint := farms.MaintenanceStore{DB: db}
	tokens := users.Tokens{Secret: []byte(cfg.JWTSecret), TTL: cfg.AccessTokenTTL, Issuer: cfg.ServiceName}
	accounts := &users.Repo{DB: db}

	api := &httpx.API{
		Auth:    &httpx.Auth{Tokens: tokens, Users: accounts},
		Users:   &httpx.UsersHandler{Store: accounts, Tokens: tokens, Mailer: svc},
		Quotes:  &httpx.QuotesHandler{Store: ords, Publisher: prod, Cache: store, Service: cfg.ServiceName},
		Reports: &httpx.ReportsHandler{Store: reps},
		Directory: &httpx.DirectoryHandler{
			Farms:       &farms.FarmRepo{DB: db},
			Suppliers:   &farms.SupplierRepo{DB: db},
			Equipment:   farms.NewEquipmentRepo(db),
			Facilities:  farms.NewFacilityRepo(db),
			Maintenance: maint,
		},
		Functions: &httpx.FunctionsHandler{Notify: svc},
		Dashboard: &httpx.DashboardHandler{Store: dashboardStore{reps, ords, maint}, Cache: store},
		EmailLog:  &httpx.EmailLogHandler{Store: &notify.EmailLogRepo{DB: db}},
	}
	router := httpx.NewRouter()
	api.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // no more publishes after Shutdown returns
	prod.WaitClosed()
}
