// Package main, teamchat sunucusunun giriş noktasıdır.
//
// Dependency Injection "wire-up":
//  1. Config'i yükle
//  2. Database'i başlat (embedded migration'lar)
//  3. Repository'leri oluştur
//  4. WebSocket Hub'ı oluştur
//  5. Service'leri oluştur (repository'ler + hub ile)
//  6. Handler'ları oluştur
//  7. Route'ları ve CORS'u bağla
//  8. HTTP Server'ı başlat
//  9. Graceful shutdown
//
// Global değişken YOK: her şey newApp içinde oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akinalp/teamchat/config"
	"github.com/akinalp/teamchat/database"
	"github.com/akinalp/teamchat/ws"
)

// App, çalışan sunucunun bütün bileşenleri.
type App struct {
	cfg      *config.Config
	db       *database.DB
	hub      *ws.Hub
	limiters *RateLimiters
	services *Services
	handler  http.Handler
}

// newApp, config'ten bütün katmanları kurar.
// Database açılamazsa hata döner; bu process için fatal'dır.
func newApp(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.New(cfg.Database.Path, database.Migrations())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	repos := initRepositories(db.Conn)
	hub := ws.NewHub()
	limiters := initRateLimiters(cfg)
	svcs := initServices(repos, hub, limiters, cfg)

	if len(cfg.Membership.Seed) > 0 {
		if err := svcs.Membership.Seed(ctx, cfg.Membership.Seed); err != nil {
			limiters.Stop()
			svcs.Membership.Close()
			db.Close()
			return nil, fmt.Errorf("failed to seed memberships: %w", err)
		}
	}

	h := initHandlers(svcs, limiters, hub, cfg)

	return &App{
		cfg:      cfg,
		db:       db,
		hub:      hub,
		limiters: limiters,
		services: svcs,
		handler:  initRoutes(h, svcs, cfg.Server.AllowedOrigins),
	}, nil
}

// Close, bütün session'ları kapatır ve kaynakları serbest bırakır.
func (a *App) Close() {
	a.hub.Shutdown()
	a.limiters.Stop()
	a.services.Membership.Close()
	if err := a.db.Close(); err != nil {
		log.Printf("[main] failed to close database: %v", err)
	}
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] teamchat server starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	log.Printf("[main] config loaded (port=%d, auto_join_on_send=%t)", cfg.Server.Port, cfg.Chat.AutoJoinOnSend)

	app, err := newApp(context.Background(), cfg)
	if err != nil {
		log.Fatalf("[main] %v", err)
	}
	log.Printf("[main] database ready at %s", cfg.Database.Path)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[main] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("[main] received %s, shutting down...", sig)

	// WebSocket bağlantıları hijack edildiği için srv.Shutdown onları beklemez;
	// önce hub session'ları kapatır.
	app.hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[main] http shutdown error: %v", err)
	}

	app.Close()
	log.Println("[main] server stopped")
}
