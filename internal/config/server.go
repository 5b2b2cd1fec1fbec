package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	AdminAPIKey string `env:"ADMIN_API_KEY"`

	InitialGrant     int64 `env:"INITIAL_GRANT" envDefault:"1000"`
	DailyClaimBase   int64 `env:"DAILY_CLAIM_BASE" envDefault:"100"`
	DailyClaimBonus  int64 `env:"DAILY_CLAIM_BONUS" envDefault:"500"`
	TransferMax      int64 `env:"TRANSFER_MAX" envDefault:"10000"`
	WeeklyBonus      int64 `env:"WEEKLY_BONUS" envDefault:"250"`

	TurnTimeoutSecs int `env:"TURN_TIMEOUT_SECONDS" envDefault:"30"`
	AFKWarnTurns    int `env:"AFK_WARN_TURNS" envDefault:"2"`
	AFKGraceSecs    int `env:"AFK_GRACE_SECONDS" envDefault:"60"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
