package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Name      string `mapstructure:"name"`
		Port      string `mapstructure:"port"`
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"app"`
	Database struct {
		Host         string `mapstructure:"host"`
		Port         string `mapstructure:"port"`
		User         string `mapstructure:"user"`
		Password     string `mapstructure:"password"`
		Name         string `mapstructure:"name"`
		Sslmode      string `mapstructure:"sslmode"`
		Timezone     string `mapstructure:"timezone"`
		MaxIdleConns int    `mapstructure:"max_idle_conns"`
		MaxOpenConns int    `mapstructure:"max_open_conns"`
	} `mapstructure:"database"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"DB"`
	} `mapstructure:"redis"`
	MarketData struct {
		BaseURL         string `mapstructure:"base_url"`
		APIKey          string `mapstructure:"api_key"`
		TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
		CacheTTLMinutes int    `mapstructure:"cache_ttl_minutes"`
		BenchmarkSymbol string `mapstructure:"benchmark_symbol"`
		BenchmarkName   string `mapstructure:"benchmark_name"`
	} `mapstructure:"market_data"`
	Analysis struct {
		// HoldBandPct is the |return| threshold (in percent) under which a
		// "hold" recommendation counts as correct. Pending product-owner
		// confirmation; see config.yaml.
		HoldBandPct float64 `mapstructure:"hold_band_pct"`
	} `mapstructure:"analysis"`
}

var AppConfig *Config

func InitConfig() {
	// .env is optional; real deployments set env vars directly
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}

	AppConfig = &Config{}
	err = viper.Unmarshal(AppConfig)
	if err != nil {
		log.Fatalf("Failed to unmarshal config: %v", err)
	}

	if key := viper.GetString("ALPHA_VANTAGE_API_KEY"); key != "" {
		AppConfig.MarketData.APIKey = key
	}
	if AppConfig.Analysis.HoldBandPct <= 0 {
		AppConfig.Analysis.HoldBandPct = 2.0
	}

	initDB()
	initRedis()
}
