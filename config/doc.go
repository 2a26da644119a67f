// Package config loads client configuration with Viper.
//
// A YAML file found next to the binary (or given explicitly) is read
// first; environment variables and an optional .env file loaded with
// godotenv override it.
//
// # Usage
//
//	var cfg Config
//	err := config.LoadConfig("kiotactl", &cfg, config.WithEnvPrefix("KIOTA"))
package config
