package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/allevapp/allevapp/internal/config"
	"github.com/allevapp/allevapp/internal/graph"
	kafkax "github.com/allevapp/allevapp/internal/kafka"
	"github.com/allevapp/allevapp/internal/notify"
	"github.com/allevapp/allevapp/internal/orders"
	"github.com/allevapp/allevapp/internal/postgres"
	"github.com/allevapp/allevapp/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := notify.NewService(db, graph.New(graph.Config(cfg.Microsoft), nil), redisx.Store{RDB: rdb},
		cfg.AppBaseURL, cfg.ServiceName+"-notifier")

	// Consumer
	topics := []string{orders.TopicQuoteRequested, orders.TopicOrderConfirmed}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, topics, cfg.NotifierWorkers)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Printf("notifier started: group=%s topics=%v workers=%d", cfg.NotifierGroup, topics, cfg.NotifierWorkers)
		if err := cons.Start(ctx, svc.HandleMessage); err != nil {
			log.Printf("consumer exit: %v", err)
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Println("shutting down notifier...")
	case <-done:
	}
	cancel()
	<-done
}
