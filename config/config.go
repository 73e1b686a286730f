// Package config loads runtime configuration from config files and the
// environment. A local .env file is loaded first so development secrets
// (API keys, private keys) stay out of checked-in config.
package config

import (
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Backend BackendConfig `mapstructure:"backend"`
	Relay   RelayConfig   `mapstructure:"relay"`
	Link    LinkConfig    `mapstructure:"link"`
	Store   StoreConfig   `mapstructure:"store"`
	Wallet  WalletConfig  `mapstructure:"wallet"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type BackendConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type RelayConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type LinkConfig struct {
	// BaseClaimURL is the page claim links point at.
	BaseClaimURL string `mapstructure:"base_claim_url"`
}

type StoreConfig struct {
	// Path of the local SQLite database; ":memory:" for ephemeral state.
	Path string `mapstructure:"path"`
}

type WalletConfig struct {
	// PrivateKey is only read from the environment (WALLET_PRIVATE_KEY).
	PrivateKey string `mapstructure:"private_key"`
	// RPCURLs maps decimal chain ids to RPC endpoints.
	RPCURLs map[string]string `mapstructure:"rpc_urls"`
}

var Global Config

// Init loads .env, the config file and environment overrides into Global.
func Init() {
	// Missing .env is fine outside development.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: config file not found, using defaults and environment variables")
		} else {
			log.Fatalf("Fatal error in config file: %s", err)
		}
	}

	if err := viper.Unmarshal(&Global); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}
}

func setDefaults() {
	viper.SetDefault("app.env", "development")

	viper.SetDefault("backend.base_url", "https://api.peanut.me")
	viper.SetDefault("relay.base_url", "https://api.peanut.to")

	viper.SetDefault("link.base_claim_url", "https://peanut.me/claim")

	viper.SetDefault("store.path", "claimlink.db")
}
