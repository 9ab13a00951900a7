package config

type AppConfig struct {
	Server  ServerConfig
	Log     LogConfig
	Tracker TrackerConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	trackerCfg, err := LoadTracker()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server:  serverCfg,
		Log:     logCfg,
		Tracker: trackerCfg,
	}, nil
}
