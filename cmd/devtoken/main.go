package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/promptforge/marketplace-api/internal/config"
	"github.com/promptforge/marketplace-api/internal/middleware"
	"github.com/promptforge/marketplace-api/internal/pkg/jwt"
)

// devtoken mints an access token signed with JWT_SECRET so the API can be
// exercised locally without the identity service.
func main() {
	userFlag := flag.String("user", "", "user id (random when empty)")
	admin := flag.Bool("admin", false, "issue an admin token")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to JWT_ACCESS_TTL)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to mint tokens with ENV=production")
	}

	userID := uuid.New()
	if *userFlag != "" {
		userID, err = uuid.Parse(*userFlag)
		if err != nil {
			log.Fatalf("Invalid user id: %v", err)
		}
	}

	role := middleware.RoleUser
	if *admin {
		role = middleware.RoleAdmin
	}

	lifetime := cfg.JWTAccessTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	token, err := jwt.NewService(cfg.JWTSecret, lifetime).GenerateAccessToken(userID, role, false)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	fmt.Printf("user_id: %s\nrole:    %s\nexpires: %s\n\n%s\n", userID, role, time.Now().Add(lifetime).Format(time.RFC3339), token)
}
