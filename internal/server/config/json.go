package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/passgate/internal/flagx"
)

// Duration accepts both "10s"-style strings and integer nanoseconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("invalid duration: %s", string(b))
	}
}

// JsonConfig is the on-disk shape of the configuration file. Strategy keys
// keep the names used by the original resource settings. Every field is a
// pointer so that keys missing from the file leave the current value alone.
type JsonConfig struct {
	HTTPAddr         *string   `json:"http_addr"`
	GRPCAddr         *string   `json:"grpc_addr"`
	MountPath        *string   `json:"mount_path"`
	LogLevel         *string   `json:"log_level"`
	DirectoryBackend *string   `json:"directory"`
	DatabaseDSN      *string   `json:"database_dsn"`
	SessionBackend   *string   `json:"sessions"`
	RedisAddr        *string   `json:"redis_addr"`
	RedisPassword    *string   `json:"redis_password"`
	RedisDB          *int      `json:"redis_db"`
	SessionTTL       *Duration `json:"session_ttl"`
	CookieSecure     *bool     `json:"cookie_secure"`
	StateSecret      *string   `json:"state_secret"`
	ProviderTimeout  *Duration `json:"provider_timeout"`
	PasswordHash     *string   `json:"password_hash"`

	SaltLen               *int    `json:"SALT_LEN"`
	BaseURL               *string `json:"baseURL"`
	AllowLocal            *bool   `json:"allowLocal"`
	AllowTwitter          *bool   `json:"allowTwitter"`
	AllowFacebook         *bool   `json:"allowFacebook"`
	TwitterConsumerKey    *string `json:"twitterConsumerKey"`
	TwitterConsumerSecret *string `json:"twitterConsumerSecret"`
	FacebookAppID         *string `json:"facebookAppId"`
	FacebookAppSecret     *string `json:"facebookAppSecret"`
	FacebookScope         *string `json:"facebookScope"`
}

// parseJson loads configuration values from a JSON file into config.
//
// The file path comes from -c/-config or PASSGATE_CONFIG; when neither is
// set nothing is loaded. An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.MountPath, c.MountPath)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.DirectoryBackend, c.DirectoryBackend)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SessionBackend, c.SessionBackend)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	if c.SessionTTL != nil {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
	setString(&config.StateSecret, c.StateSecret)
	if c.ProviderTimeout != nil {
		config.ProviderTimeout = c.ProviderTimeout.Duration
	}
	setString(&config.PasswordHash, c.PasswordHash)

	if c.SaltLen != nil && *c.SaltLen > 0 {
		config.SaltLen = *c.SaltLen
	}
	setString(&config.BaseURL, c.BaseURL)
	if c.AllowLocal != nil {
		config.AllowLocal = *c.AllowLocal
	}
	if c.AllowTwitter != nil {
		config.AllowTwitter = *c.AllowTwitter
	}
	if c.AllowFacebook != nil {
		config.AllowFacebook = *c.AllowFacebook
	}
	setString(&config.TwitterConsumerKey, c.TwitterConsumerKey)
	setString(&config.TwitterConsumerSecret, c.TwitterConsumerSecret)
	setString(&config.FacebookAppID, c.FacebookAppID)
	setString(&config.FacebookAppSecret, c.FacebookAppSecret)
	setString(&config.FacebookScope, c.FacebookScope)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
