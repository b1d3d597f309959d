// Command main runs the database seeder for Decider.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"decider/internal/cache"
	"decider/internal/config"
	"decider/internal/database"
	"decider/internal/middleware"
	"decider/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numQuestions := flag.Int("questions", 60, "Number of questions to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fast := flag.Bool("fast", false, "Store plain passwords instead of bcrypt hashes")
	randSeed := flag.Int64("rand-seed", 0, "Seed for reproducible content (0 = random)")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the printed dev token")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// The seeder drops the cached category catalogue while it writes.
	cache.Connect(cfg.RedisURL)

	s := seed.NewSeeder(db, seed.Options{
		Users:      *numUsers,
		Questions:  *numQuestions,
		SkipBcrypt: *fast,
		RandSeed:   *randSeed,
	})

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	res, err := s.Run()
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	// A list served between the seeder's writes and its commit may have been
	// cached again.
	cache.Invalidate(context.Background(), cache.CategoriesKey)

	user := res.Users[0]
	token, err := middleware.SignViewerToken(cfg.JWTSecret, user.ID, *tokenTTL)
	if err != nil {
		log.Fatalf("Failed to sign dev token: %v", err)
	}

	fmt.Printf("Seeded %d users, %d categories, %d questions\n", len(res.Users), len(res.Categories), len(res.Questions))
	fmt.Printf("All users have the password: %s\n", seed.DefaultPassword)
	fmt.Printf("Dev token for %s (id %d):\n%s\n", user.Username, user.ID, token)
}
