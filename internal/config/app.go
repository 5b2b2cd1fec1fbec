package config

// AppConfig bundles everything the server process reads from the
// environment at startup.
type AppConfig struct {
	Server ServerConfig
	Log    LogConfig
}

// LoadApp parses the full configuration. Logging comes first so a bad
// server config can still be reported through a configured logger.
func LoadApp() (AppConfig, error) {
	var cfg AppConfig
	var err error
	if cfg.Log, err = LoadLog(); err != nil {
		return AppConfig{}, err
	}
	if cfg.Server, err = LoadServer(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}
