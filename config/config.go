// Package config loads the reference heartbeatagentd daemon's configuration,
// adapted from the teacher's env.go/viper.go/validator.go trio: viper and
// pflag for sourcing (file, env, flag, in that increasing order of
// precedence), mapstructure for decoding into Config, and validator/v10 for
// post-decode checks. The agent package itself takes no dependency on this
// package — it is a convenience for cmd/heartbeatagentd and any other
// embedder that wants the teacher's usual config idiom instead of
// constructing heartbeat.Config by hand.
package config

import (
	"flag"
	"fmt"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_trans "github.com/go-playground/validator/v10/translations/en"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvType mirrors the teacher's env.go distinction between development and
// production, used here only to pick sane defaults (e.g. log level).
type EnvType string

const (
	EnvDevelopment EnvType = "development"
	EnvProduction  EnvType = "production"
)

// Config is the typed, validated configuration for the reference daemon.
// Every field here ends up either driving heartbeat.Config construction
// directly or, via ServiceAttributeStrings, surfacing as a configuration key
// published by the configuration publisher (component D).
type Config struct {
	Env EnvType `mapstructure:"env" validate:"omitempty,oneof=development production"`

	ServiceUUID string `mapstructure:"service_uuid" validate:"required"`
	ServiceType string `mapstructure:"service_type" validate:"required,oneof=DIR MRC OSD VOLUME"`
	ServiceName string `mapstructure:"service_name" validate:"required"`

	DIREndpoint string `mapstructure:"dir_endpoint" validate:"required"`
	UseSSL      bool   `mapstructure:"use_ssl"`
	UseGridSSL  bool   `mapstructure:"use_grid_ssl"`
	CertFile          string `mapstructure:"cert_file" validate:"required_if=UseSSL true"`
	KeyFile           string `mapstructure:"key_file" validate:"required_if=UseSSL true"`
	CACertFile        string `mapstructure:"ca_cert_file"`
	GridKeystoreFile  string `mapstructure:"grid_keystore_file" validate:"required_if=UseGridSSL true"`
	PKCS12Pass        string `mapstructure:"pkcs12_password"`

	UpdateIntervalMillis         int64  `mapstructure:"update_interval_ms" validate:"required,min=1000"`
	ConflictRetryIntervalMillis  int64  `mapstructure:"conflict_retry_interval_ms" validate:"omitempty,min=100"`
	AddressMappingTTLSeconds     uint32 `mapstructure:"address_mapping_ttl_s"`
	MatchNetwork                 string `mapstructure:"match_network"`
	AdvertisedPort               uint16 `mapstructure:"advertised_port" validate:"required"`
	Scheme                       string `mapstructure:"scheme" validate:"required,oneof=oncrpc oncrpcs oncrpcg oncrpcu"`

	StatusAPIEnabled bool   `mapstructure:"status_api_enabled"`
	StatusAPIAddr    string `mapstructure:"status_api_addr"`

	AMQPURL      string `mapstructure:"amqp_url"`
	AMQPExchange string `mapstructure:"amqp_exchange"`
	WebhookURL   string `mapstructure:"webhook_url"`

	// Every entry here is published verbatim as a DIR configuration key by
	// the configuration publisher (§4.4); see convert.go's
	// StructConvertMapByTag for how a struct, rather than this raw map,
	// can serve the same purpose.
	ServiceAttributes map[string]string `mapstructure:"service_attributes"`
}

var (
	validate *validator.Validate
	trans    ut.Translator
)

func init() {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")

	validate = validator.New()
	_ = en_trans.RegisterDefaultTranslations(validate, trans)
}

// Load reads configuration from file (if non-empty), then environment
// variables prefixed with envPrefix, then command-line flags registered on
// flag.CommandLine — in that increasing order of precedence, matching the
// teacher's NewReadInConfig idiom of layering pflag on top of viper.
func Load(file, envPrefix string, parseFlags bool) (*Config, error) {
	v := viper.New()

	if envPrefix != "" {
		v.SetEnvPrefix(envPrefix)
		v.AutomaticEnv()
	}

	if parseFlags {
		pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
		pflag.Parse()
		if err := v.BindPFlags(pflag.CommandLine); err != nil {
			return nil, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	applyDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("env", EnvDevelopment)
	v.SetDefault("update_interval_ms", 60000)
	v.SetDefault("conflict_retry_interval_ms", 5000)
	v.SetDefault("address_mapping_ttl_s", 3600)
	v.SetDefault("match_network", "*")
	v.SetDefault("scheme", "oncrpc")
}

// Validate runs struct validation and, on failure, returns the first
// validation error translated to an English message — matching the
// teacher's validator.go Validate helper.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok || len(verrs) == 0 {
			return err
		}
		return fmt.Errorf("config: %s", verrs[0].Translate(trans))
	}
	return nil
}
