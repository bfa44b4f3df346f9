package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agendaapp/agenda-api/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedUsers(context.Background(), pool, 50, true); err != nil {
		log.Fatalf("seed providers: %v", err)
	}
	if err := seedUsers(context.Background(), pool, 500, false); err != nil {
		log.Fatalf("seed users: %v", err)
	}

	log.Println("seed complete")
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, count int, provider bool) error {
	kind := "users"
	if provider {
		kind = "providers"
	}
	log.Printf("seeding %d %s", count, kind)

	for i := 0; i < count; i++ {
		name := gofakeit.Name()
		email := strings.ToLower(gofakeit.Email())

		var avatarPath *string
		if provider {
			p := gofakeit.UUID() + ".jpg"
			avatarPath = &p
		}

		_, err := pool.Exec(ctx, `
			INSERT INTO users (name, email, provider, avatar_path, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
			ON CONFLICT (email) DO NOTHING
		`, name, email, provider, avatarPath)
		if err != nil {
			return err
		}
	}

	return nil
}
