package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/app"
	"github.com/aussiebroadwan/gradebook/pkg/cryptox"
)

const usage = `usage: gradebook [command]

commands:
  serve           run the HTTP service (default)
  hash-password   read a password from the terminal and print its stored form
  gen-secret      print a random secret for GRADEBOOK_JWT_SECRET or a master key file
`

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		serve()
	case "hash-password":
		if err := hashPassword(os.Stdin, os.Stdout, app.LoadConfig().PepperFile); err != nil {
			fmt.Fprintln(os.Stderr, "hash-password:", err)
			os.Exit(1)
		}
	case "gen-secret":
		if err := genSecret(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "gen-secret:", err)
			os.Exit(1)
		}
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func genSecret(out io.Writer) error {
	secret, err := cryptox.GenerateSecret(cryptox.SecretSize)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, secret)
	return err
}

func serve() {
	cfg := app.LoadConfig()

	application, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
