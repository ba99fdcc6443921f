package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultUpstreamURL = "https://web.spaggiari.eu/rest/v1"
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// DefaultRelays are the public relays tried, in order, when the upstream is not directly reachable.
var DefaultRelays = []string{
	"https://api.allorigins.win/raw?url=",
	"https://cors-anywhere.herokuapp.com/",
	"https://corsproxy.io/?",
}

type (
	ServerConfig struct {
		Host               string
		Port               string
		DebugHost          string
		JWTExpirationDelta time.Duration
		ShutdownTimeout    time.Duration
		DisableReqLogs     bool
		CORSAllowOrigins   []string
	}

	DatabaseConfig struct {
		Engine     string
		URL        string
		Host       string
		Port       string
		User       string
		Password   string
		Name       string
		DisableTLS bool
	}

	UpstreamConfig struct {
		BaseURL        string
		APIKey         string
		UserAgent      string
		Relays         []string
		AttemptTimeout time.Duration
		TotalTimeout   time.Duration
	}

	SyntheticConfig struct {
		Random bool
		Seed   int64
	}

	Config struct {
		Env          string
		Build        string
		AppName      string
		SecretKey    string
		RollbarToken string
		Debug        bool
		TestMode     bool

		Server    ServerConfig
		Database  DatabaseConfig
		Upstream  UpstreamConfig
		Synthetic SyntheticConfig
	}
)

// Address returns the HTTP listen address.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// Address returns the "host:port" of the database server.
func (db DatabaseConfig) Address() string {
	if db.Port == "" {
		return db.Host
	}
	return net.JoinHostPort(db.Host, db.Port)
}

// Configured reports whether a PostgreSQL database was configured at all.
func (db DatabaseConfig) Configured() bool {
	return db.URL != "" || db.Host != ""
}

// NewConfig loads the configuration from defaults, the optional dotenv file of the current ENV and the environment.
func NewConfig() *Config {
	v := viper.New()

	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Classeviva Dashboard")
	v.SetDefault("secretKey", "u7x!q2-w9e$+r4t=yz&ui(o0p)#*a1s(d3f^$gh5jk6l")
	v.SetDefault("build", "develop")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("testMode", false)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "3001")
	v.SetDefault("server.debugHost", "localhost:4001")
	v.SetDefault("server.jwtExpirationDelta", 24*time.Hour)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("server.corsAllowOrigins", []string{"*"})

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "classeviva")
	v.SetDefault("database.disableTLS", false)

	v.SetDefault("upstream.baseURL", DefaultUpstreamURL)
	v.SetDefault("upstream.apiKey", "+zorro+")
	v.SetDefault("upstream.userAgent", DefaultUserAgent)
	v.SetDefault("upstream.relays", DefaultRelays)
	v.SetDefault("upstream.attemptTimeout", 10*time.Second)
	v.SetDefault("upstream.totalTimeout", 25*time.Second)

	v.SetDefault("synthetic.random", false)
	v.SetDefault("synthetic.seed", int64(42))

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	// plain names used by hosting platforms
	_ = v.BindEnv("server.port", env+"_SERVER_PORT", "PORT")
	_ = v.BindEnv("secretKey", env+"_SECRETKEY", "JWT_SECRET")
	_ = v.BindEnv("database.url", env+"_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("rollbarToken", env+"_ROLLBARTOKEN", "ROLLBAR_TOKEN")

	return &Config{
		Env:          env,
		Build:        v.GetString("build"),
		AppName:      v.GetString("appName"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			Port:               v.GetString("server.port"),
			DebugHost:          v.GetString("server.debugHost"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:     v.GetBool("server.disableReqLogs"),
			CORSAllowOrigins:   v.GetStringSlice("server.corsAllowOrigins"),
		},
		Database: DatabaseConfig{
			Engine:     v.GetString("database.engine"),
			URL:        v.GetString("database.url"),
			Host:       v.GetString("database.host"),
			Port:       v.GetString("database.port"),
			User:       v.GetString("database.user"),
			Password:   v.GetString("database.password"),
			Name:       v.GetString("database.name"),
			DisableTLS: v.GetBool("database.disableTLS"),
		},
		Upstream: UpstreamConfig{
			BaseURL:        strings.TrimRight(v.GetString("upstream.baseURL"), "/"),
			APIKey:         v.GetString("upstream.apiKey"),
			UserAgent:      v.GetString("upstream.userAgent"),
			Relays:         v.GetStringSlice("upstream.relays"),
			AttemptTimeout: v.GetDuration("upstream.attemptTimeout"),
			TotalTimeout:   v.GetDuration("upstream.totalTimeout"),
		},
		Synthetic: SyntheticConfig{
			Random: v.GetBool("synthetic.random"),
			Seed:   v.GetInt64("synthetic.seed"),
		},
	}
}

// NewTestConfig returns the configuration used by tests: no network relays and short timeouts.
func NewTestConfig() *Config {
	conf := NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.Server.DisableReqLogs = true
	conf.Upstream.Relays = nil
	conf.Upstream.AttemptTimeout = 2 * time.Second
	conf.Upstream.TotalTimeout = 5 * time.Second
	return conf
}
