package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/perspectives/internal/pkg/config"
)

const migrationsDir = "migrations"

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	cfg, err := config.Load("perspectives-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	up, down, err := migrationFiles(migrationsDir)
	if err != nil {
		log.Fatalf("list migrations: %v", err)
	}

	switch os.Args[1] {
	case "up":
		run(ctx, pool, up)
	case "down":
		// newest first
		sort.Sort(sort.Reverse(sort.StringSlice(down)))
		run(ctx, pool, down)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

// migrationFiles splits dir into forward (NNN_name.sql) and rollback
// (NNN_name.down.sql) scripts, both in lexical order.
func migrationFiles(dir string) (up, down []string, err error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, nil, err
	}
	sort.Strings(matches)
	for _, f := range matches {
		if strings.HasSuffix(f, ".down.sql") {
			down = append(down, f)
		} else {
			up = append(up, f)
		}
	}
	return up, down, nil
}

func run(ctx context.Context, pool *pgxpool.Pool, files []string) {
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}

		if _, err := pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}

		fmt.Printf("OK  %s\n", f)
	}

	log.Printf("%d migrations applied", len(files))
}
