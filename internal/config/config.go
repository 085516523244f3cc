package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SecurityConfig struct {
	SessionSecret string
	SessionTTL    time.Duration
	RememberTTL   time.Duration
	CookieName    string
	SecureCookies bool
}

type AccountsConfig struct {
	DefaultMaxSize   int64
	TempTTL          time.Duration
	PendingTTL       time.Duration
	ReservedNames    []string
	DefaultCollID    string
	DefaultCollTitle string
	DefaultCollDesc  string
	ValidationCookie string
}

type MailConfig struct {
	Stream   string
	BaseURL  string
	From     string
	SMTPAddr string
	SMTPUser string
	SMTPPass string
}

type QueueConfig struct {
	Group         string
	Consumer      string
	ClaimInterval time.Duration
	MaxDeliveries int64
}

type JobsConfig struct {
	SessionSweep string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Redis            RedisConfig
	Security         SecurityConfig
	Accounts         AccountsConfig
	Mail             MailConfig
	Queue            QueueConfig
	Jobs             JobsConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("WEBRECORDER")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

// Default returns the configuration with only defaults applied.
func Default() *AppConfig {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8089)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("security.sessionsecret", "change-me")
	v.SetDefault("security.sessionttl", "24h")
	v.SetDefault("security.rememberttl", "720h") // 30 days
	v.SetDefault("security.cookiename", "__wr_sesh")
	v.SetDefault("security.securecookies", false)

	v.SetDefault("accounts.defaultmaxsize", 1000000000)
	v.SetDefault("accounts.tempttl", "24h")
	v.SetDefault("accounts.pendingttl", "48h")
	v.SetDefault("accounts.reservednames", []string{
		"login", "logout", "user", "users", "admin", "manager", "guest",
		"settings", "profile", "api", "anon", "anonymous", "temp", "webrecorder",
		"register", "join", "download", "live", "static", "assets", "js", "css",
		"code", "_",
	})
	v.SetDefault("accounts.defaultcollid", "default-collection")
	v.SetDefault("accounts.defaultcolltitle", "Default Collection")
	v.SetDefault("accounts.defaultcolldesc", "*This is your first collection.*\n\nFeel free to edit this description and start recording.")
	v.SetDefault("accounts.validationcookie", "valreg")

	v.SetDefault("mail.stream", "mail:outbound")
	v.SetDefault("mail.baseurl", "http://localhost:8089")
	v.SetDefault("mail.from", "noreply@localhost")

	v.SetDefault("queue.group", "mailers")
	v.SetDefault("queue.consumer", "mailer-1")
	v.SetDefault("queue.claiminterval", "30s")
	v.SetDefault("queue.maxdeliveries", 5)

	v.SetDefault("jobs.sessionsweep", "0 0 * * * *") // hourly
}
