package updateuserlearning

import "time"

type Config struct {
	Timeout       time.Duration
	MaxCategories int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       15 * time.Second,
		MaxCategories: 16,
	}
}
