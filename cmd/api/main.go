package main

import (
	"log"
	"net/http"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"repolens/internal/archive"
	"repolens/internal/bookmark"
	"repolens/internal/config"
	"repolens/internal/identity"
	llmclient "repolens/internal/llmClient"
	"repolens/internal/repo"
	"repolens/internal/review"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ids := identity.Open(cfg.IdentityPath)
	repos, err := repo.NewManager(cfg.ReposRoot, ids)
	if err != nil {
		log.Fatalf("init repos: %v", err)
	}

	reviewer := llmclient.NewReviewer(cfg.Review.GeminiAPIKey, cfg.Review.GroqAPIKey, cfg.Review.FileTimeout)
	defer reviewer.Close()
	orch := review.New(repos, reviewer)

	bookmarks, err := bookmark.Open(cfg.Bookmark.Path, cfg.Bookmark.DSN, cfg.Bookmark.Secret)
	if err != nil {
		log.Fatalf("open bookmark store: %v", err)
	}
	defer bookmarks.Close()

	var reports *archive.Store
	if cfg.Archive.Enabled {
		reports, err = archive.New(archive.Config{
			Endpoint:  cfg.Archive.Endpoint,
			Region:    cfg.Archive.Region,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Bucket:    cfg.Archive.Bucket,
			UseSSL:    cfg.Archive.UseSSL,
		})
		if err != nil {
			log.Printf("report archive disabled: %v", err)
			reports = nil
		}
	}

	s := newAPIServer(repos, orch, bookmarks, reports)
	mux := buildMux(s)

	log.Printf("repolens api listening on %s (env=%s)", cfg.Port, cfg.Env)
	log.Fatal(http.ListenAndServe(cfg.Port, h2c.NewHandler(mux, &http2.Server{})))
}
