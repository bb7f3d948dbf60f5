// Package main provides a CLI tool for generating issuer API tokens for
// local development. These tokens use the dev signing key and will NOT work
// against a production deployment.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"skillchain/internal/apitoken"
)

const (
	// Matches config.go when API_SIGNING_KEY is not set.
	devSigningKey = "dev-secret-key-change-in-production"

	defaultTTL = 12 * time.Hour
)

type tokenOutput struct {
	Token     string `json:"token"`
	Issuer    string `json:"issuer"`
	ExpiresIn string `json:"expires_in"`
	Usage     string `json:"usage"`
}

func main() {
	identity := flag.String("issuer", "", "Issuer identity the token is minted for (required)")
	key := flag.String("key", devSigningKey, "HS256 signing key, must match the server's API_SIGNING_KEY")
	ttl := flag.Duration("ttl", defaultTTL, "Token time-to-live")
	asJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	if *identity == "" {
		fmt.Fprintln(os.Stderr, "tokengen: -issuer is required")
		flag.Usage()
		os.Exit(2)
	}

	svc := apitoken.NewService(*key, "skillchain", *ttl)
	token, err := svc.MintToken(*identity, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		out := tokenOutput{
			Token:     token,
			Issuer:    *identity,
			ExpiresIn: ttl.String(),
			Usage:     "Authorization: Bearer <token>",
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return
	}

	fmt.Println(token)
}
