package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/service"
	"golang.org/x/term"
)

// monitor-token issues a JWT for the proctor monitor API.
func main() {
	var (
		operator string
		sessions string
		ttl      time.Duration
		prompt   bool
	)
	flag.StringVar(&operator, "operator", "", "Operator name recorded in the token (required)")
	flag.StringVar(&sessions, "sessions", "", "Comma-separated quiz session ids; empty grants all sessions")
	flag.DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to JWT_EXPIRY_HOURS)")
	flag.BoolVar(&prompt, "prompt-secret", false, "Read the signing secret from the terminal instead of JWT_SECRET")
	flag.Parse()

	cfg := config.Load()

	operator = strings.TrimSpace(operator)
	if operator == "" {
		fmt.Fprintln(os.Stderr, "Error: -operator is required")
		flag.Usage()
		os.Exit(2)
	}
	if ttl > 0 {
		cfg.JWTExpiry = ttl
	}

	if prompt {
		if !term.IsTerminal(int(syscall.Stdin)) {
			fmt.Fprintln(os.Stderr, "Error: -prompt-secret needs an interactive terminal")
			os.Exit(2)
		}
		fmt.Fprint(os.Stderr, "JWT secret: ")
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error reading secret")
			os.Exit(1)
		}
		cfg.JWTSecret = string(secret)
	}
	if cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "Error: signing secret is empty")
		os.Exit(2)
	}

	token, err := service.NewAuthService(cfg).GenerateMonitorToken(operator, splitSessions(sessions))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Token for %q expires at %s\n", operator, time.Now().Add(cfg.JWTExpiry).Format(time.RFC3339))
	fmt.Println(token)
}

func splitSessions(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
