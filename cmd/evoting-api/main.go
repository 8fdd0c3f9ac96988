package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/evoting-dev/evoting/internal/config"
	"github.com/evoting-dev/evoting/internal/logger"
	"github.com/evoting-dev/evoting/internal/router"
	"github.com/evoting-dev/evoting/internal/setup"
)

func main() {
	log.SetFlags(log.Lshortfile)

	var configFolder string
	flag.StringVar(&configFolder, "config_folder", "config", "path to folder with configs")
	flag.Parse()

	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.MustLoad(configFolder)
	logger.Initialize(cfg.Public.LogLevel, cfg.Public.LogJSON)

	deps, err := setup.SetupDependencies(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer deps.Storage.Cleanup()

	r := router.New(deps)

	httpPort := os.Getenv("PORT")
	if httpPort == "" {
		httpPort = "8080"
	}

	logger.Log.Info("server started", "port", httpPort)
	log.Fatal(http.ListenAndServe(":"+httpPort, r))
}
