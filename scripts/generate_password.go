package main

import (
	"fmt"
	"log"
	"os"

	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
)

// Prints a bcrypt hash for a password that passes the account password policy,
// e.g. to create a staff account by hand.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/generate_password.go <password>")
	}

	password := os.Args[1]
	cfg := &config.Config{Security: config.SecurityConfig{BcryptCost: 12}}
	passwords := auth.NewPasswordManager(cfg)

	if err := passwords.ValidatePassword(password); err != nil {
		log.Fatal("Password rejected: ", err)
	}

	hash, err := passwords.HashPassword(password)
	if err != nil {
		log.Fatal("Error generating hash: ", err)
	}

	fmt.Printf("Hash: %s\n", hash)

	if err := passwords.VerifyPassword(password, hash); err != nil {
		log.Fatal("Hash verification failed: ", err)
	}

	fmt.Println("✅ Hash verified successfully!")
}
