package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"folio/api/internal/app"
	"folio/api/internal/comments"
	"folio/api/internal/config"
	"folio/api/internal/content"
	"folio/api/internal/email"
	"folio/api/internal/export"
	"folio/api/internal/gitrepo"
	"folio/api/internal/search"
	"folio/api/internal/session"
	"folio/api/internal/store"
)

// Posts are written by folioctl from another process, so the search index
// is rebuilt from disk on this interval.
const reindexInterval = 5 * time.Minute

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	if err := os.MkdirAll(cfg.ReposDir, 0o755); err != nil {
		log.Fatalf("failed to create repos dir: %v", err)
	}

	dataStore := store.NewSQLStore(db)
	gitService := gitrepo.New(cfg.ReposDir)
	library := content.NewLibrary(cfg.ContentDir, content.WithJournal(gitService.Journal(gitrepo.Author{
		Name:  cfg.AuthorName,
		Email: cfg.AuthorEmail,
	})))

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient)
	defer searchService.Close()
	reindex(library, searchService)

	deps := app.Deps{
		Store:   dataStore,
		Posts:   library,
		History: gitService,
		Search:  searchService,
		// Export only reads threads, so it gets its own engine without a notifier.
		Export: export.NewService(library, comments.NewEngine(dataStore, dataStore)),
		Mail: email.NewService(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			SiteName: cfg.SiteTitle,
			SiteURL:  cfg.SiteURL,
		}),
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for refresh token storage")
		redisStore, err := session.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		deps.Sessions = redisStore
	} else {
		log.Printf("Using %s for refresh token storage", cfg.DatabaseDriver)
	}

	service := app.New(cfg, deps)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(reindexInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reindex(library, searchService)
			}
		}
	}()

	go func() {
		log.Printf("Folio API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func reindex(library *content.Library, searchService *search.Service) {
	posts, err := library.List()
	if err != nil {
		log.Printf("search: list posts: %v", err)
		return
	}
	records := make([]search.PostRecord, len(posts))
	for i, post := range posts {
		records[i] = search.PostRecord{
			ID:          post.Slug,
			Title:       post.Title,
			Description: post.Description,
			Body:        post.Body,
			Tags:        post.Tags,
			Date:        post.Date.Unix(),
		}
	}
	searchService.ReindexAll(records)
}
