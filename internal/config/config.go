// Package config resolves capture settings from viper: config file keys,
// FORGETAP_* environment variables and defaults.
package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/agentstation/forgetap"
	"github.com/agentstation/forgetap/pkg/constants"
	"github.com/agentstation/forgetap/pkg/errors"
	"github.com/agentstation/forgetap/pkg/interceptor"
)

// EnvPrefix prefixes every environment variable read through viper.
const EnvPrefix = "FORGETAP"

// Keys read from viper.
const (
	KeyUpstream        = "upstream"
	KeyListen          = "listen"
	KeyAPIListen       = "api_listen"
	KeyGamePathMarker  = "game_path_marker"
	KeyMetaPathMarker  = "meta_path_marker"
	KeyExcludedPaths   = "excluded_paths"
	KeyRecordFile      = "record_file"
	KeyMetadataCache   = "metadata_cache"
	KeyMaxInspectBytes = "max_inspect_bytes"
	KeyHistoryLimit    = "history_limit"
	KeyAutoDrain       = "auto_drain"
)

// Settings configures a capture session.
type Settings struct {
	Upstream        string        `json:"upstream" yaml:"upstream"`
	Listen          string        `json:"listen" yaml:"listen"`
	APIListen       string        `json:"api_listen" yaml:"api_listen"`
	GamePathMarker  string        `json:"game_path_marker" yaml:"game_path_marker"`
	MetaPathMarker  string        `json:"meta_path_marker" yaml:"meta_path_marker"`
	ExcludedPaths   []string      `json:"excluded_paths" yaml:"excluded_paths"`
	RecordFile      string        `json:"record_file,omitempty" yaml:"record_file,omitempty"`
	MetadataCache   string        `json:"metadata_cache,omitempty" yaml:"metadata_cache,omitempty"`
	MaxInspectBytes int64         `json:"max_inspect_bytes" yaml:"max_inspect_bytes"`
	HistoryLimit    int           `json:"history_limit" yaml:"history_limit"`
	AutoDrain       time.Duration `json:"auto_drain,omitempty" yaml:"auto_drain,omitempty"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyListen, constants.DefaultListenAddr)
	v.SetDefault(KeyAPIListen, constants.DefaultAPIAddr)
	v.SetDefault(KeyGamePathMarker, constants.GameDataMarker)
	v.SetDefault(KeyMetaPathMarker, constants.MetaMarker)
	v.SetDefault(KeyExcludedPaths, []string{constants.DefaultExcludedPath})
	v.SetDefault(KeyMaxInspectBytes, int64(constants.MaxInspectBytes))
}

// BindEnv makes v read FORGETAP_<KEY> variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// FromViper reads Settings from v.
func FromViper(v *viper.Viper) Settings {
	return Settings{
		Upstream:        v.GetString(KeyUpstream),
		Listen:          v.GetString(KeyListen),
		APIListen:       v.GetString(KeyAPIListen),
		GamePathMarker:  v.GetString(KeyGamePathMarker),
		MetaPathMarker:  v.GetString(KeyMetaPathMarker),
		ExcludedPaths:   splitList(v.GetStringSlice(KeyExcludedPaths)),
		RecordFile:      v.GetString(KeyRecordFile),
		MetadataCache:   v.GetString(KeyMetadataCache),
		MaxInspectBytes: v.GetInt64(KeyMaxInspectBytes),
		HistoryLimit:    v.GetInt(KeyHistoryLimit),
		AutoDrain:       v.GetDuration(KeyAutoDrain),
	}
}

// ValidateUpstream checks that the upstream is an absolute http(s) URL.
func (s Settings) ValidateUpstream() error {
	if s.Upstream == "" {
		return errors.NewValidationError(KeyUpstream, s.Upstream, "required")
	}
	u, err := url.Parse(s.Upstream)
	if err != nil {
		return errors.WrapValidation(KeyUpstream, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.NewValidationError(KeyUpstream, s.Upstream, "must be an absolute http(s) URL")
	}
	return nil
}

// InterceptorConfig returns the classification config for these settings.
func (s Settings) InterceptorConfig() interceptor.Config {
	cfg := interceptor.DefaultConfig()
	if s.GamePathMarker != "" {
		cfg.GameDataMarker = s.GamePathMarker
	}
	if s.MetaPathMarker != "" {
		cfg.MetaMarker = s.MetaPathMarker
	}
	if s.ExcludedPaths != nil {
		cfg.ExcludedPaths = s.ExcludedPaths
	}
	cfg.HistoryLimit = s.HistoryLimit
	return cfg
}

// ClientOptions returns the forgetap options for these settings.
func (s Settings) ClientOptions(logger *zerolog.Logger) []forgetap.Option {
	opts := []forgetap.Option{
		forgetap.WithLogger(logger),
		forgetap.WithInterceptorConfig(s.InterceptorConfig()),
	}
	if s.MaxInspectBytes > 0 {
		opts = append(opts, forgetap.WithMaxInspectBytes(s.MaxInspectBytes))
	}
	if s.MetadataCache != "" {
		opts = append(opts, forgetap.WithMetadataCache(s.MetadataCache))
	}
	if s.AutoDrain > 0 {
		opts = append(opts, forgetap.WithAutoDrain(s.AutoDrain))
	}
	return opts
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
