package core

import (
	"fmt"
	"net/url"
	"strings"
)

type DiscordConfig struct {
	BaseURL    string `koanf:"base_url" mapstructure:"base_url"`
	CDNBaseURL string `koanf:"cdn_base_url" mapstructure:"cdn_base_url"`
	BotToken   string `koanf:"bot_token" mapstructure:"bot_token"`
	GuildID    string `koanf:"guild_id" mapstructure:"guild_id"`
}

type CaptchaConfig struct {
	VerifyURL string `koanf:"verify_url" mapstructure:"verify_url"`
	Secret    string `koanf:"secret" mapstructure:"secret"`
}

type GradingConfig struct {
	BaseURL string `koanf:"base_url" mapstructure:"base_url"`
}

type Config struct {
	ServiceName string        `koanf:"service_name" mapstructure:"service_name"`
	FrontendURL string        `koanf:"frontend_url" mapstructure:"frontend_url"`
	Discord     DiscordConfig `koanf:"discord" mapstructure:"discord"`
	Captcha     CaptchaConfig `koanf:"captcha" mapstructure:"captcha"`
	Grading     GradingConfig `koanf:"grading" mapstructure:"grading"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "forms",
		Discord: DiscordConfig{
			BaseURL:    "https://discord.com/api/v10/",
			CDNBaseURL: "https://cdn.discordapp.com",
		},
		Captcha: CaptchaConfig{
			VerifyURL: "https://hcaptcha.com/siteverify",
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.Discord.BaseURL) != "" {
		if _, err := url.Parse(c.Discord.BaseURL); err != nil {
			return fmt.Errorf("core: discord.base_url is invalid: %w", err)
		}
	}
	if strings.TrimSpace(c.Captcha.VerifyURL) != "" {
		if _, err := url.Parse(c.Captcha.VerifyURL); err != nil {
			return fmt.Errorf("core: captcha.verify_url is invalid: %w", err)
		}
	}
	return nil
}
