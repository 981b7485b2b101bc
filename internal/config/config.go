package config

import (
	"errors"

	"github.com/spf13/viper"

	"github.com/studmisto/opsbot/internal/models"
)

type Config struct {
	Env      string `mapstructure:"ENV"`
	Port     string `mapstructure:"PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	BotToken      string `mapstructure:"BOT_TOKEN"`
	WebhookURL    string `mapstructure:"WEBHOOK_URL"`
	WebhookSecret string `mapstructure:"WEBHOOK_SECRET"`

	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	AdminChatID        int64 `mapstructure:"ADMIN_CHAT_ID"`
	ChatThreadFeedback int   `mapstructure:"CHAT_THREAD_FEEDBACK"`

	ChatThreadElectrical int `mapstructure:"CHAT_THREAD_ELECTRICAL"`
	ChatThreadPlumbing   int `mapstructure:"CHAT_THREAD_PLUMBING"`
	ChatThreadGas        int `mapstructure:"CHAT_THREAD_GAS"`
	ChatThreadElevator   int `mapstructure:"CHAT_THREAD_ELEVATOR"`
	ChatThreadCarpentry  int `mapstructure:"CHAT_THREAD_CARPENTRY"`
	ChatThreadOther      int `mapstructure:"CHAT_THREAD_OTHER"`

	SpreadsheetID            string `mapstructure:"SPREADSHEET_ID"`
	GoogleServiceAccountJSON string `mapstructure:"GOOGLE_SERVICE_ACCOUNT_JSON"`

	WorkHoursStart  string `mapstructure:"WORK_HOURS_START"`
	WorkHoursEnd    string `mapstructure:"WORK_HOURS_END"`
	AfterHoursPhone string `mapstructure:"AFTER_HOURS_PHONE"`
	TimezoneOffset  int    `mapstructure:"TIMEZONE_OFFSET"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MONGO_DATABASE", "studmisto")
	v.SetDefault("WORK_HOURS_START", "09:00")
	v.SetDefault("WORK_HOURS_END", "17:00")
	v.SetDefault("TIMEZONE_OFFSET", 3)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.BotToken == "" {
		return errors.New("config: BOT_TOKEN is required")
	}
	if c.MongoURI == "" {
		return errors.New("config: MONGO_URI is required")
	}
	if c.AdminChatID == 0 {
		return errors.New("config: ADMIN_CHAT_ID is required")
	}
	return nil
}

// CategoryThreads maps each request category to its staff-channel thread.
func (c Config) CategoryThreads() map[models.Category]int {
	return map[models.Category]int{
		models.CategoryElectrical: c.ChatThreadElectrical,
		models.CategoryPlumbing:   c.ChatThreadPlumbing,
		models.CategoryGas:        c.ChatThreadGas,
		models.CategoryElevator:   c.ChatThreadElevator,
		models.CategoryCarpentry:  c.ChatThreadCarpentry,
		models.CategoryOther:      c.ChatThreadOther,
	}
}
