// migrate applies the embedded schema to DATABASE_URL.
//
//	go run ./cmd/migrate                  # up
//	go run ./cmd/migrate -direction=down  # drop everything
//	go run ./cmd/migrate -version         # print the applied version
package main

import (
	"flag"
	"fmt"
	"os"

	"social-auth/backend/internal/config"
	"social-auth/backend/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", migrate.Up, "migration direction: up or down")
	showVersion := flag.Bool("version", false, "print the applied schema version and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if *showVersion {
		v, dirty, err := migrate.Version(cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
		fmt.Printf("version %d dirty=%t\n", v, dirty)
		return
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
