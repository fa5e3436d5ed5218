// Command token mints a signed access token for local development and
// testing. The signing secret comes from JWT_SECRET or the -secret flag.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"closedesk/pkg/auth"
)

func main() {
	var (
		userID = flag.String("user", "", "user ID to embed in the token")
		role   = flag.String("role", "agent", "role: agent, tc or broker")
		secret = flag.String("secret", os.Getenv("JWT_SECRET"), "signing secret (defaults to JWT_SECRET)")
		issuer = flag.String("issuer", "closedesk", "token issuer")
		ttl    = flag.Duration("ttl", 24*time.Hour, "token lifetime")
	)
	flag.Parse()

	if *userID == "" {
		log.Fatal("-user is required")
	}
	r := auth.Role(*role)
	if !r.Valid() {
		log.Fatalf("unknown role %q", *role)
	}

	gen, err := auth.NewGenerator(*secret, *issuer, *ttl)
	if err != nil {
		log.Fatal(err)
	}
	token, err := gen.Generate(*userID, r)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
