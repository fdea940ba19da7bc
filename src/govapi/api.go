package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/onchainkit/govtoolkit/src/govapi/config"
	"github.com/onchainkit/govtoolkit/src/govapi/data"
	"github.com/onchainkit/govtoolkit/src/govapi/webserver"
	"github.com/onchainkit/govtoolkit/src/shared/chain"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	db := data.MustMySQL(cfg.MySQLDSN)
	if err := data.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if err := data.LoadSettings(db); err != nil {
		log.Printf("failed to load settings: %v", err)
	}
	rdb := data.MustRedis(cfg.RedisURL)

	var reader chain.Reader
	if client, err := chain.Dial(cfg.RPCURL); err != nil {
		log.Printf("chain rpc unavailable, chain-backed strategies evaluate to zero: %v", err)
	} else {
		reader = client
	}

	router := webserver.New(cfg, db, rdb, reader)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()

	log.Printf("govapi listening on %s", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}
