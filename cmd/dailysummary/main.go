// Command dailysummary sends the morning summary email once and prints the result.
// Run it from cron; a second run on the same day is a no-op unless -force is given.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/allevapp/allevapp/internal/config"
	"github.com/allevapp/allevapp/internal/graph"
	"github.com/allevapp/allevapp/internal/notify"
	"github.com/allevapp/allevapp/internal/postgres"
	"github.com/allevapp/allevapp/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	force := flag.Bool("force", false, "send even if today's summary already went out")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := notify.NewService(db, graph.New(graph.Config(cfg.Microsoft), nil), redisx.Store{RDB: rdb},
		cfg.AppBaseURL, cfg.ServiceName+"-dailysummary")

	res, err := svc.SendDailySummary(ctx, *force)
	if err != nil {
		log.Fatalf("daily summary: %v", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(res)
	if res.Failed > 0 && res.Sent == 0 {
		os.Exit(1)
	}
}
