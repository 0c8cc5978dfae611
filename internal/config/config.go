package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr           string
		AllowedOrigins string
	}
	Database struct {
		Path string
	}
	Log struct {
		Level string
	}
	Auth struct {
		SessionSecret     string
		SessionTTLMinutes int
		CookieSecure      bool
		RegisterPassword  string
		HashAlgorithm     string
		LoginBurst        int
		LoginPerMinute    int
	}
	Session struct {
		Backend       string
		RedisAddr     string
		RedisPassword string
		RedisDB       int
	}
	Weather struct {
		City            string
		Latitude        float64
		Longitude       float64
		BaseURL         string
		IntervalMinutes int
		TimeoutSeconds  int
		HistoryLimit    int
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
	Backup struct {
		IntervalMinutes int
		Keep            int
	}
}

// SessionTTL is the lifetime of a login.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.Auth.SessionTTLMinutes) * time.Minute
}

// Origins splits the comma separated allowed origins.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.Server.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv(".env")

	v := viper.New()
	v.SetEnvPrefix("INKPOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// setDefaults registers every key, which AutomaticEnv needs for Unmarshal
// to see environment overrides.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.allowedorigins", "http://localhost:3000")
	v.SetDefault("database.path", "data/inkpost.db")
	v.SetDefault("log.level", "info")

	v.SetDefault("auth.sessionsecret", "")
	v.SetDefault("auth.sessionttlminutes", 1440)
	v.SetDefault("auth.cookiesecure", false)
	v.SetDefault("auth.registerpassword", "")
	v.SetDefault("auth.hashalgorithm", "sha256")
	v.SetDefault("auth.loginburst", 5)
	v.SetDefault("auth.loginperminute", 10)

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.redisaddr", "")
	v.SetDefault("session.redispassword", "")
	v.SetDefault("session.redisdb", 0)

	v.SetDefault("weather.city", "Chongqing")
	v.SetDefault("weather.latitude", 29.563)
	v.SetDefault("weather.longitude", 106.551)
	v.SetDefault("weather.baseurl", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("weather.intervalminutes", 0)
	v.SetDefault("weather.timeoutseconds", 10)
	v.SetDefault("weather.historylimit", 10)

	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "inkpost-backups")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")

	v.SetDefault("backup.intervalminutes", 0)
	v.SetDefault("backup.keep", 7)
}

func (c Config) validate() error {
	if c.Auth.SessionTTLMinutes <= 0 {
		return fmt.Errorf("auth.sessionttlminutes must be positive")
	}
	switch c.Session.Backend {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Session.RedisAddr) == "" {
			return fmt.Errorf("session.redisaddr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown session.backend %q", c.Session.Backend)
	}
	if c.Weather.IntervalMinutes < 0 || c.Backup.IntervalMinutes < 0 {
		return fmt.Errorf("intervals must not be negative")
	}
	if c.Backup.IntervalMinutes > 0 && c.Storage.Bucket == "" {
		return fmt.Errorf("backup.intervalminutes needs storage.bucket")
	}
	return nil
}

func loadDotEnv(name string) {
	file, err := os.Open(name)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
