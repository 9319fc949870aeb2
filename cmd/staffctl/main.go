package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/staffdesk/internal/cli"
)

func main() {
	// A missing .env is fine; existing variables win.
	_ = godotenv.Load()
	os.Exit(cli.Execute())
}
