// Package config loads typed configuration structs from the environment
// with caarlos0/env, reading an optional .env file through godotenv first.
// Every infrastructure package exposes its own Config struct; the CLI loads
// the ones it needs.
package config
