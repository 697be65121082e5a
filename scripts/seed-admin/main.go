// seed-admin creates the initial admin user so a fresh deployment can log
// in. Re-running with an existing email is an error, not an update.
//
// Usage: go run ./scripts/seed-admin -email admin@example.com -name "Admin" [-password secret]
//
// When -password is omitted a random one is generated and printed once.
//
// Database connection: uses the standard PG* environment variables.
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/relaycrm/outreach-engine/pkg/auth"
	"github.com/relaycrm/outreach-engine/pkg/config"
	"github.com/relaycrm/outreach-engine/pkg/database"
	"github.com/relaycrm/outreach-engine/pkg/repositories"
)

func main() {
	email := flag.String("email", "", "Admin email (required)")
	name := flag.String("name", "Admin", "Admin display name")
	password := flag.String("password", "", "Admin password (generated when omitted)")
	flag.Parse()

	if *email == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -email admin@example.com [-name Admin] [-password secret]\n", os.Args[0])
		os.Exit(1)
	}

	_ = godotenv.Load()

	cfg, err := config.Load("seed-admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	generated := false
	if *password == "" {
		*password, err = randomPassword()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate password: %v\n", err)
			os.Exit(1)
		}
		generated = true
	}

	ctx := context.Background()
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: 2,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	authService := auth.NewService(repositories.NewUserRepository(db), cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	user, err := authService.Register(ctx, *email, *password, *name, "admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create admin: %v\n", err)
		os.Exit(1)
	}

	logger, _ := zap.NewDevelopment()
	logger.Info("Admin user created",
		zap.String("id", user.ID.String()),
		zap.String("email", user.Email))
	if generated {
		fmt.Printf("Generated password (store it now, it is not shown again): %s\n", *password)
	}
}

func randomPassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
