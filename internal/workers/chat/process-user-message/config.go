package processusermessage

import "time"

type Config struct {
	Timeout       time.Duration
	HistoryWindow int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       30 * time.Second,
		HistoryWindow: 10,
	}
}
