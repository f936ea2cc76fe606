// Command operatorkey prints the bcrypt hash to put in AUTH_OPERATOR_KEY_HASH.
//
//	operatorkey <key>
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/fitcore/fitness-gatekeeper/internal/auth"
	"github.com/fitcore/fitness-gatekeeper/internal/config"
)

func main() {
	if len(os.Args) != 2 || os.Args[1] == "" {
		fmt.Fprintln(os.Stderr, "usage: operatorkey <key>")
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	hash, err := auth.HashSecret(os.Args[1], cfg.Auth.BcryptCost)
	if err != nil {
		log.Fatalf("hash key: %v", err)
	}
	fmt.Println(hash)
}
