package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	SMS     SMSConfig
	Booking BookingConfig
}

type AppConfig struct {
	Port string
	Env  string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type SMSConfig struct {
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
}

type BookingConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	// TTL of zero disables the timeout sweep
	bookingTTL, err := time.ParseDuration(viper.GetString("BOOKING_TTL"))
	if err != nil {
		bookingTTL = 0
	}

	sweepInterval, err := time.ParseDuration(viper.GetString("BOOKING_SWEEP_INTERVAL"))
	if err != nil {
		sweepInterval = time.Minute
	}

	config := &Config{
		App: AppConfig{
			Port: viper.GetString("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		DB: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		SMS: SMSConfig{
			TwilioAccountSID: viper.GetString("TWILIO_ACCOUNT_SID"),
			TwilioAuthToken:  viper.GetString("TWILIO_AUTH_TOKEN"),
			TwilioFromNumber: viper.GetString("TWILIO_FROM_NUMBER"),
		},
		Booking: BookingConfig{
			TTL:           bookingTTL,
			SweepInterval: sweepInterval,
		},
	}

	return config, nil
}
