// Command token mints a bearer token for the product manager's mutating routes.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"ProductManager/internal/auth"
	"ProductManager/internal/config"
	"ProductManager/pkg/kit"
)

func main() {
	cfg := config.Load()

	subject := flag.String("sub", "dashboard", "token subject")
	ttl := flag.Duration("ttl", cfg.TokenTTL, "token lifetime")
	flag.Parse()

	log := kit.NewLogger("token", kit.LogOptions{})
	defer func() { _ = log.Sync() }()

	if cfg.JWTSecret == "" {
		log.Error("JWT_SECRET is required")
		os.Exit(2)
	}

	tok, err := auth.NewTokenMaker(cfg.JWTSecret).New(*subject, *ttl)
	if err != nil {
		log.Fatal("sign token", zap.Error(err))
	}
	fmt.Println(tok)
}
