package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("oauth-flow version %s, commit %s, built at %s", version, commit, date)
}

// ErrConfiguration is returned when the startup configuration is incomplete or invalid.
// The service must not accept requests when Load returns it.
var ErrConfiguration = errors.New("configuration error")

const (
	// EnvPrefix is prepended to every environment variable, e.g. OAUTH_FLOW_OAUTH_CLIENT_ID
	EnvPrefix = "OAUTH_FLOW"

	// ProviderGoogle is the only supported identity provider
	ProviderGoogle = "google"

	DefaultCallbackPath = "/oauth2callback"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	OAuth   OAuthConfig   `mapstructure:"oauth" yaml:"oauth"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host" yaml:"host"`
	Port              int           `mapstructure:"port" yaml:"port"`
	Name              string        `mapstructure:"name" yaml:"name"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
}

// Addr returns the listen address in host:port form
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LoggingConfig struct {
	Level             string `mapstructure:"level" yaml:"level"`
	Format            string `mapstructure:"format" yaml:"format"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace" yaml:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path" yaml:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file" yaml:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console" yaml:"disable_console"`
	// ErrorLogPath receives error level entries only
	ErrorLogPath string `mapstructure:"error_log_path" yaml:"error_log_path"`
}

type OAuthConfig struct {
	Provider          string          `mapstructure:"provider" yaml:"provider"`
	ClientID          string          `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret      string          `mapstructure:"client_secret" yaml:"client_secret"`
	AuthorizeEndpoint string          `mapstructure:"authorize_endpoint" yaml:"authorize_endpoint"`
	TokenEndpoint     string          `mapstructure:"token_endpoint" yaml:"token_endpoint"`
	ResourceEndpoint  string          `mapstructure:"resource_endpoint" yaml:"resource_endpoint"`
	CallbackURL       string          `mapstructure:"callback_url" yaml:"callback_url"`
	Scope             string          `mapstructure:"scope" yaml:"scope"`
	Timeout           time.Duration   `mapstructure:"timeout" yaml:"timeout"`
	Timestamp         TimestampConfig `mapstructure:"timestamp" yaml:"timestamp"`
}

// Scopes splits the configured scope string on whitespace
func (o OAuthConfig) Scopes() []string {
	return strings.Fields(o.Scope)
}

// CallbackPath is the local route the provider redirects back to
func (o OAuthConfig) CallbackPath() string {
	u, err := url.Parse(o.CallbackURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return DefaultCallbackPath
	}
	return u.Path
}

// TimestampConfig controls the Timestamp value attached to fetched user info.
// Layout uses the Go reference time; Timezone is an IANA zone name.
type TimestampConfig struct {
	Layout   string `mapstructure:"layout" yaml:"layout"`
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

// Location loads the configured zone
func (t TimestampConfig) Location() (*time.Location, error) {
	return time.LoadLocation(t.Timezone)
}

var defaults = map[string]interface{}{
	"server.host":                "127.0.0.1",
	"server.port":                5000,
	"server.name":                "oauth-flow",
	"server.read_header_timeout": 10 * time.Second,

	"logging.level":              "info",
	"logging.format":             "console",
	"logging.disable_stacktrace": false,
	"logging.output_path":        "",
	"logging.append_to_file":     true,
	"logging.disable_console":    false,
	"logging.error_log_path":     "",

	"oauth.provider":           ProviderGoogle,
	"oauth.client_id":          "",
	"oauth.client_secret":      "",
	"oauth.authorize_endpoint": "",
	"oauth.token_endpoint":     "",
	"oauth.resource_endpoint":  "",
	"oauth.callback_url":       "",
	"oauth.scope":              "",
	"oauth.timeout":            5 * time.Second,
	"oauth.timestamp.layout":   time.RFC3339,
	"oauth.timestamp.timezone": "UTC",
}

// flag name -> config key
var flagKeys = map[string]string{
	"host":      "server.host",
	"port":      "server.port",
	"log-level": "logging.level",
}

// InitFlags registers the command line flags understood by Load (without parsing)
func InitFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a config.yaml file")
	fs.String("host", "127.0.0.1", "Address to listen on")
	fs.Int("port", 5000, "Port to listen on")
	fs.String("log-level", "info", "Log level (debug|info|warn|error)")
}

// Load reads defaults, the config file, OAUTH_FLOW_* environment variables and
// the given flags, in increasing order of precedence, and validates the result.
// flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	configFile := ""
	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
		if f := flags.Lookup("config"); f != nil {
			configFile = f.Value.String()
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrConfiguration, configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/oauth-flow")
		if err := v.ReadInConfig(); err != nil {
			// the file is optional, everything can come from the environment
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks that every required OAuth setting is present and well formed.
// All missing keys are reported at once.
func (c *Config) Validate() error {
	o := c.OAuth
	required := []struct {
		key   string
		value string
	}{
		{"oauth.client_id", o.ClientID},
		{"oauth.client_secret", o.ClientSecret},
		{"oauth.authorize_endpoint", o.AuthorizeEndpoint},
		{"oauth.token_endpoint", o.TokenEndpoint},
		{"oauth.resource_endpoint", o.ResourceEndpoint},
		{"oauth.callback_url", o.CallbackURL},
		{"oauth.scope", o.Scope},
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required settings: %s (set them in config.yaml or as %s_* environment variables)",
			ErrConfiguration, strings.Join(missing, ", "), EnvPrefix)
	}

	if o.Provider != ProviderGoogle {
		return fmt.Errorf("%w: unsupported oauth.provider %q", ErrConfiguration, o.Provider)
	}

	for key, raw := range map[string]string{
		"oauth.authorize_endpoint": o.AuthorizeEndpoint,
		"oauth.token_endpoint":     o.TokenEndpoint,
		"oauth.resource_endpoint":  o.ResourceEndpoint,
		"oauth.callback_url":       o.CallbackURL,
	} {
		if err := validateURL(raw); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrConfiguration, key, err)
		}
	}

	if o.Timeout <= 0 {
		return fmt.Errorf("%w: oauth.timeout must be positive, got %s", ErrConfiguration, o.Timeout)
	}
	if o.Timestamp.Layout == "" {
		return fmt.Errorf("%w: oauth.timestamp.layout is empty", ErrConfiguration)
	}
	if _, err := o.Timestamp.Location(); err != nil {
		return fmt.Errorf("%w: oauth.timestamp.timezone: %v", ErrConfiguration, err)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrConfiguration, c.Server.Port)
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q is not an http(s) URL", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}

// Redacted returns a copy that is safe to print
func (c Config) Redacted() Config {
	if c.OAuth.ClientSecret != "" {
		c.OAuth.ClientSecret = "********"
	}
	return c
}
