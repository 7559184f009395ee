package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-library-management/config"
	"github.com/oksasatya/go-library-management/internal/application"
	"github.com/oksasatya/go-library-management/internal/domain/entity"
	repo "github.com/oksasatya/go-library-management/internal/domain/repository"
	pginfra "github.com/oksasatya/go-library-management/internal/infrastructure/postgres"
	"github.com/oksasatya/go-library-management/pkg/helpers"
)

var starterBooks = []entity.Book{
	{Title: "The Pragmatic Programmer", Author: "Andrew Hunt, David Thomas"},
	{Title: "Clean Code", Author: "Robert C. Martin"},
	{Title: "The Go Programming Language", Author: "Alan Donovan, Brian Kernighan"},
	{Title: "Designing Data-Intensive Applications", Author: "Martin Kleppmann"},
	{Title: "Structure and Interpretation of Computer Programs", Author: "Harold Abelson, Gerald Jay Sussman"},
	{Title: "Refactoring", Author: "Martin Fowler"},
	{Title: "Domain-Driven Design", Author: "Eric Evans"},
	{Title: "Site Reliability Engineering", Author: "Betsy Beyer et al."},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	users := pginfra.NewUserRepository(pool)
	books := pginfra.NewBookRepository(pool)

	email := "demo@library.local"
	password := "password123"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}
	u := &entity.User{
		Name:     "Demo User",
		Mobile:   "0000000000",
		Email:    email,
		Password: hash,
		Gender:   "other",
		Location: "Library",
	}
	if err := users.Create(ctx, u); err != nil {
		if !errors.Is(err, repo.ErrDuplicate) {
			log.Fatalf("failed to seed user: %v", err)
		}
		existing, err := users.GetByEmail(ctx, email)
		if err != nil {
			log.Fatalf("failed to load seeded user: %v", err)
		}
		u = existing
	}
	fmt.Printf("seeded user: id=%d email=%s password=%s\n", u.ID, email, password)

	for i := range starterBooks {
		if err := books.Upsert(ctx, &starterBooks[i]); err != nil {
			log.Fatalf("failed to seed book %q: %v", starterBooks[i].Title, err)
		}
	}
	fmt.Printf("seeded %d books\n", len(starterBooks))

	if !cfg.SearchEnabled {
		return
	}
	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		log.Fatalf("elasticsearch client: %v", err)
	}
	idx := application.NewCatalogIndex(es, cfg.ESBooksIndex, logger)
	if err := idx.EnsureIndex(ctx); err != nil {
		log.Fatalf("ensure index: %v", err)
	}
	all, err := books.List(ctx)
	if err != nil {
		log.Fatalf("list books: %v", err)
	}
	if err := idx.IndexBooks(ctx, all); err != nil {
		log.Fatalf("index books: %v", err)
	}
}
