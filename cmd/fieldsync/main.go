package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/Jsunwilke/employeeapp-sub003/internal/buildinfo"
	"github.com/Jsunwilke/employeeapp-sub003/internal/client/app"
	"github.com/Jsunwilke/employeeapp-sub003/internal/client/config"
	"github.com/Jsunwilke/employeeapp-sub003/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	a, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := a.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
