package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// TokenEnvVar overrides discord.token when set, so the bot token can be kept
// out of the config file.
const TokenEnvVar = "MODGUARD_TOKEN"

type Config struct {
	Log        LogConfig        `toml:"log"`
	DB         DBConfig         `toml:"database"`
	Discord    DiscordConfig    `toml:"discord"`
	Moderation ModerationConfig `toml:"moderation"`
}

type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

func (l *LogLevel) UnmarshalText(text []byte) error {
	v := string(text)
	switch LogLevel(v) {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
		*l = LogLevel(v)
		return nil
	default:
		return fmt.Errorf("invalid log.level: %q (must be debug, info, warn, error)", v)
	}
}

func (l LogLevel) String() string { return string(l) }

func (l LogLevel) ToSlogLevel() slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type LogConfig struct {
	Level LogLevel `toml:"level"`
}

type DBConfig struct {
	Path string `toml:"path"`
}

type DiscordConfig struct {
	// Token is the bot token. MODGUARD_TOKEN takes precedence when set.
	Token string `toml:"token"`
	// GuildID scopes slash-command registration to a single guild. Empty
	// registers the commands globally, which Discord propagates slowly.
	GuildID string `toml:"guild_id"`
}

type ModerationConfig struct {
	// LogChannel is the name of the moderation-log channel. Notifications
	// are skipped silently in guilds that have no channel with this name.
	LogChannel string `toml:"log_channel"`
	// AdminRoles are the role names allowed to run admin commands.
	AdminRoles []string `toml:"admin_roles"`
	// WarnMessage is posted publicly (prefixed with the author mention)
	// when a severity-2 rule matches.
	WarnMessage string `toml:"warn_message"`
	// DMMessage is sent to the author before a severity-3 kick; the
	// offending message content is appended.
	DMMessage string `toml:"dm_message"`
	// KickReason is passed to the platform's kick call and shows up in the
	// guild's audit log.
	KickReason string `toml:"kick_reason"`
	// MatcherCacheSize bounds the compiled-pattern cache. Zero uses a
	// built-in default.
	MatcherCacheSize int `toml:"matcher_cache_size"`
}

func defaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: InfoLevel,
		},
		DB: DBConfig{
			Path: "./modguard-db",
		},
		Moderation: ModerationConfig{
			LogChannel:  "moderator-log",
			AdminRoles:  []string{"Admin", "Moderator"},
			WarnMessage: "your message was deleted due to a violation of the server rules.",
			DMMessage:   "You have been kicked from the server for violating its rules. Offending message:",
			KickReason:  "Violated server rules.",
		},
	}
}

func (c *Config) validate() error {
	// --- [database] ---
	if c.DB.Path == "" {
		return errors.New("database.path must not be empty")
	}

	// --- [moderation] ---
	if len(c.Moderation.AdminRoles) == 0 {
		return errors.New("moderation.admin_roles must contain at least one role name")
	}
	for i, role := range c.Moderation.AdminRoles {
		if role == "" {
			return fmt.Errorf("moderation.admin_roles[%d] must not be empty", i)
		}
	}
	if c.Moderation.WarnMessage == "" {
		return errors.New("moderation.warn_message must not be empty")
	}
	if c.Moderation.KickReason == "" {
		return errors.New("moderation.kick_reason must not be empty")
	}
	if c.Moderation.MatcherCacheSize < 0 {
		return errors.New("moderation.matcher_cache_size must not be negative")
	}

	return nil
}

// Load reads and validates the config file. With useDefaults a missing file
// is not an error and the built-in defaults are returned; the second return
// value reports whether that happened.
func Load(path string, useDefaults bool) (*Config, bool, error) {
	cfg := defaultConfig()
	defaultsUsed := false

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if useDefaults {
				defaultsUsed = true
				if err := cfg.validate(); err != nil {
					return nil, true, err
				}
				cfg.applyEnv()
				return cfg, defaultsUsed, nil
			}
			return nil, false, fmt.Errorf("config file not found at %s", path)
		}
		return nil, false, fmt.Errorf("failed to load config file %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, false, err
	}
	cfg.applyEnv()
	return cfg, defaultsUsed, nil
}

func (c *Config) applyEnv() {
	if token := os.Getenv(TokenEnvVar); token != "" {
		c.Discord.Token = token
	}
}
