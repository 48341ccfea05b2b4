package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/lms-backend/internal/config"
	"github.com/stemsi/lms-backend/internal/service"
)

// issue-token mints a signed token for local testing. Login lives in a
// separate identity service.
func main() {
	var (
		tokenType string
		userID    string
		classID   string
		ttl       time.Duration
	)
	flag.StringVar(&tokenType, "type", "student", "Token type: student or admin")
	flag.StringVar(&userID, "user", "", "User ID to embed in the token (required)")
	flag.StringVar(&classID, "class", "", "Class ID for student tokens")
	flag.DurationVar(&ttl, "ttl", 2*time.Hour, "Token lifetime")
	flag.Parse()

	if userID == "" {
		fmt.Fprintln(os.Stderr, "-user is required")
		flag.Usage()
		os.Exit(2)
	}

	var tt service.TokenType
	switch tokenType {
	case "student":
		tt = service.TokenTypeStudent
	case "admin":
		tt = service.TokenTypeAdmin
	default:
		fmt.Fprintf(os.Stderr, "unknown token type %q\n", tokenType)
		os.Exit(2)
	}

	cfg := config.Load()
	token, err := service.NewAuthService(cfg.JWTSecret).IssueToken(tt, userID, classID, ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
