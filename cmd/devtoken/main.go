package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/booksexchange/booksexchange-api/internal/config"
	"github.com/booksexchange/booksexchange-api/internal/domain/user"
	"github.com/booksexchange/booksexchange-api/internal/pkg/database"
	"github.com/booksexchange/booksexchange-api/internal/pkg/jwt"
)

// Mints an access token for local development. Auth lives with the identity
// provider in production; this tool signs with the same JWT_SECRET the API
// validates against, so curl and websocket clients can talk to a dev server.
func main() {
	userFlag := flag.String("user", "", "user id to embed in the token (default: a fresh uuid)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	create := flag.Bool("create", false, "also insert a users row for the id")
	email := flag.String("email", "", "email for -create (default derived from the user id)")
	name := flag.String("name", "Dev User", "display name for -create")
	flag.Parse()

	cfg := config.Load()

	userID := uuid.New()
	if *userFlag != "" {
		parsed, err := uuid.Parse(*userFlag)
		if err != nil {
			log.Fatalf("Invalid -user value: %v", err)
		}
		userID = parsed
	}

	if *create {
		db, err := database.NewPostgres(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		addr := *email
		if addr == "" {
			addr = fmt.Sprintf("dev-%s@example.com", userID.String()[:8])
		}

		repo := user.NewRepository(db)
		err = repo.Create(context.Background(), &user.User{ID: userID, Email: addr, DisplayName: *name})
		switch {
		case errors.Is(err, user.ErrEmailExists):
			fmt.Printf("user %s already exists, minting token only\n", userID)
		case err != nil:
			log.Fatalf("Failed to create user: %v", err)
		default:
			fmt.Printf("created user %s <%s>\n", userID, addr)
		}
	}

	token, err := jwt.NewService(cfg.JWTSecret, *ttl).GenerateAccessToken(userID)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	fmt.Printf("user_id: %s\n", userID)
	fmt.Printf("token:   %s\n", token)
	fmt.Printf("\ncurl -H 'Authorization: Bearer %s' http://localhost:%s/api/v1/points/balance\n", token, cfg.Port)
}
