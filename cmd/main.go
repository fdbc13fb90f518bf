package main

import (
	"log"

	"github.com/Shiyikai2002/student-trading-platform/internal/app"
	"github.com/Shiyikai2002/student-trading-platform/internal/app/config"
)

func main() {
	cfg := config.MustLoad()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	application.Run()
}
