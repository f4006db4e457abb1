package main

import (
	"github.com/joho/godotenv"

	"docrag/internal/cli"
)

func main() {
	// Missing .env is fine; the config has defaults for everything.
	_ = godotenv.Load()

	cli.Execute()
}
