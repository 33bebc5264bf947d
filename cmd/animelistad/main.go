// Command animelistad runs the animelista background daemon: periodic
// catalog sync, episode notifications and the HTTP API.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/bhaskara2k/animelista-sub000/internal/config"
	"github.com/bhaskara2k/animelista-sub000/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	logLevel := flag.String("log-level", "", "Override logging.level")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{LogLevel: *logLevel}); err != nil {
		log.Fatalf("daemon: %v", err)
	}
}
