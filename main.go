package main

import (
	"log"
	"os"

	"github.com/avstrong/roomdesk/internal/app"
	"github.com/avstrong/roomdesk/internal/config"
	"github.com/avstrong/roomdesk/internal/logger"
)

func main() {
	conf, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l, err := logger.New(conf.IsProduction(), conf.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	var exitCode int

	if err := app.Run(l, conf); err != nil {
		l.LogErrorf("Failed to run app: %v", err.Error())

		exitCode = 1
	}

	_ = l.Sync()

	os.Exit(exitCode)
}
