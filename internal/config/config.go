package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/clublive/clublive/internal/domain"
)

type RoomDefaults struct {
	AllowChat                bool `mapstructure:"allow_chat"`
	AllowSpectators          bool `mapstructure:"allow_spectators"`
	MaxSpectators            uint `mapstructure:"max_spectators"`
	RequireApproval          bool `mapstructure:"require_approval"`
	AutoKickInactive         bool `mapstructure:"auto_kick_inactive"`
	InactivityTimeoutMinutes uint `mapstructure:"inactivity_timeout_minutes"`
	EnableTypingIndicators   bool `mapstructure:"enable_typing_indicators"`
	EnableReadReceipts       bool `mapstructure:"enable_read_receipts"`
}

type Config struct {
	Mode string `mapstructure:"mode"`
	Port int    `mapstructure:"port"`

	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	InactivityTimeout time.Duration `mapstructure:"inactivity_timeout"`
	ActivityWindow    time.Duration `mapstructure:"activity_window"`
	WriteBufferFrames int           `mapstructure:"write_buffer_frames"`
	RoomDefaults      RoomDefaults  `mapstructure:"room_defaults"`
}

// DefaultSettings converts the configured room defaults into the
// domain settings applied to newly created rooms.
func (c *Config) DefaultSettings() domain.RoomSettings {
	d := c.RoomDefaults
	return domain.RoomSettings{
		AllowChat:                d.AllowChat,
		AllowSpectators:          d.AllowSpectators,
		MaxSpectators:            d.MaxSpectators,
		RequireApproval:          d.RequireApproval,
		AutoKickInactive:         d.AutoKickInactive,
		InactivityTimeoutMinutes: d.InactivityTimeoutMinutes,
		EnableTypingIndicators:   d.EnableTypingIndicators,
		EnableReadReceipts:       d.EnableReadReceipts,
	}
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("sweep_interval", "60s")
	v.SetDefault("inactivity_timeout", "30m")
	v.SetDefault("activity_window", "5m")
	v.SetDefault("write_buffer_frames", 32)
	v.SetDefault("room_defaults.allow_chat", true)
	v.SetDefault("room_defaults.allow_spectators", true)
	v.SetDefault("room_defaults.max_spectators", 100)
	v.SetDefault("room_defaults.require_approval", false)
	v.SetDefault("room_defaults.auto_kick_inactive", false)
	v.SetDefault("room_defaults.inactivity_timeout_minutes", 30)
	v.SetDefault("room_defaults.enable_typing_indicators", true)
	v.SetDefault("room_defaults.enable_read_receipts", false)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
