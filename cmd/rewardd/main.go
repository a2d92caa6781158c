package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/doodlegames/doodle-rewards/internal/api"
	"github.com/doodlegames/doodle-rewards/internal/db"
	"github.com/doodlegames/doodle-rewards/internal/ethereum"
	"github.com/doodlegames/doodle-rewards/internal/reward"
	"github.com/doodlegames/doodle-rewards/internal/websocket"
	"github.com/doodlegames/doodle-rewards/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	logger.SetLevel(logger.INFO)
	if err := logger.EnableFileLogging("./logs"); err != nil {
		log.Fatalf("Failed to enable file logging: %v", err)
	}

	logger.Info("DOODLE reward service starting...")

	dbService, err := db.NewDBService(nil)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	defer dbService.Close()

	// The signing credential is mandatory: without it no reward can ever
	// be minted, so refusing to start beats limping along.
	tokenService, err := ethereum.NewTokenService(nil)
	if err != nil {
		logger.Fatal("Failed to initialize Ethereum client: %v", err)
	}
	defer tokenService.Close()

	wsManager := websocket.NewRewardFeedManager()
	go wsManager.Run()

	engine := reward.NewEngine(dbService, tokenService, wsManager)

	contractAddr := os.Getenv("CONTRACT_ADDRESS")
	if contractAddr == "" {
		contractAddr = ethereum.DefaultContractAddress
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":3000"
	}

	logger.Info("==============================================")
	logger.Info("Server listening at http://localhost%s", addr)
	logger.Info("Contract Address: %s", contractAddr)
	logger.Info("==============================================")

	r := api.SetupRouter(api.NewHandler(engine, tokenService), wsManager)
	if err := r.Run(addr); err != nil {
		logger.Fatal("Failed to run server: %v", err)
	}
}
