// Package main provides the entry point for the NutriPlan engine API server
package main

import (
	"flag"

	"go.uber.org/fx"

	"github.com/nutriplan/engine/internal/infrastructure/container"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path (defaults to ./config.yaml)")
	flag.Parse()

	// Run blocks until SIGINT or SIGTERM and then stops every component
	fx.New(
		fx.Supply(container.ConfigPath(*configPath)),
		container.Module,
	).Run()
}
