package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/m3rciful/infobot/core/bootstrap"
	"github.com/m3rciful/infobot/core/cmd"
	coreconfig "github.com/m3rciful/infobot/core/config"
	"github.com/m3rciful/infobot/internal/bot"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	err := cmd.Run(cmd.Options{
		ConfigEnvVar:      "INFOBOT_CONFIG",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return coreconfig.Load(path)
		},
		Bootstrap: func(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			cfg := carrier.CoreConfig()
			infra, err := bootstrap.Run(bootstrap.Options{Config: cfg})
			if err != nil {
				return nil, err
			}
			app, err := bot.New(cfg, infra)
			if err != nil {
				_ = infra.Close()
				return nil, err
			}
			return app, nil
		},
	})
	if err != nil {
		log.Fatalf("infobot: %v", err)
	}
}
