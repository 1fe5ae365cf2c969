// Command tokengen mints an admin token for the profile management and
// index maintenance endpoints. The signing secret comes from the same
// configuration the server loads, so a token minted here validates against
// a server sharing the .env.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/talentmatch/matchd/internal/auth"
	"github.com/talentmatch/matchd/internal/config"
)

func main() {
	subject := flag.String("subject", "", "token subject, e.g. an operator email")
	expiry := flag.Duration("expiry", 0, "token lifetime (defaults to JWT_EXPIRY)")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "usage: tokengen -subject <who> [-expiry 24h]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtConfig.Expiry = cfg.JWTExpiry
	if *expiry > 0 {
		jwtConfig.Expiry = *expiry
	}

	token, err := auth.NewJWTManager(jwtConfig).GenerateToken(*subject)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n\nexpires: %s\n", token, time.Now().Add(jwtConfig.Expiry).Format(time.RFC3339))
}
