// Package config loads application configuration from environment variables
// into tagged structs, caching each struct type so it is parsed at most once
// per process.
//
// It wraps github.com/joho/godotenv for optional .env files and
// github.com/caarlos0/env/v11 for struct parsing:
//
//	type ServerConfig struct {
//	    Addr string `env:"SERVER_ADDR" envDefault:":8080"`
//	}
//
//	var cfg ServerConfig
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Use LoadEnv to read specific .env files before parsing, and ResetCache in
// tests that mutate the process environment between loads.
package config
