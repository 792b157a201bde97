package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sonanterra/queueengine/internal/fairness"
)

type envLookupFunc func(key string) (string, bool)

// Loader applies the env-over-file-over-defaults precedence used across
// this module: defaults are set first, a YAML file (if any) overlays them,
// and environment variables win over both.
type Loader struct {
	configPath  string
	lookupEnvFn envLookupFunc
}

// NewLoader creates a Loader that reads configPath (ignored if empty) and
// the real process environment.
func NewLoader(configPath string) *Loader {
	return NewLoaderWithEnv(configPath, os.LookupEnv)
}

// NewLoaderWithEnv creates a Loader with an injected environment lookup,
// for tests that must not depend on the real process environment.
func NewLoaderWithEnv(configPath string, lookup envLookupFunc) *Loader {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Loader{configPath: configPath, lookupEnvFn: lookup}
}

// Load resolves the final AppConfig: defaults, then file, then env,
// validated before being returned.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		f, err := l.loadFile(l.configPath)
		if err != nil {
			return AppConfig{}, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, f); err != nil {
			return AppConfig{}, fmt.Errorf("apply file config: %w", err)
		}
	}

	if err := l.mergeEnv(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("apply env config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return AppConfig{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (l *Loader) loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var f fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return &fileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	// Reject multi-document / trailing-content files: a second Decode call
	// must hit EOF.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &f, nil
}

func (l *Loader) envString(key string, dst *string) {
	if v, ok := l.lookupEnvFn(key); ok {
		*dst = v
	}
}

func (l *Loader) envInt(key string, dst *int) {
	v, ok := l.lookupEnvFn(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return
	}
	*dst = n
}

func (l *Loader) envBool(key string, dst *bool) {
	v, ok := l.lookupEnvFn(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return
	}
	*dst = b
}

// mergeEnv overlays the QUEUEENGINE_* environment variables onto cfg, the
// final and highest-precedence step.
func (l *Loader) mergeEnv(cfg *AppConfig) error {
	l.envString("QUEUEENGINE_DATA_DIR", &cfg.DataDir)
	l.envInt("QUEUEENGINE_MAX_PENDING_PER_USER", &cfg.MaxPendingPerUser)
	l.envInt("QUEUEENGINE_DUPLICATE_THRESHOLD_QUEUE_LEN", &cfg.DuplicateThresholdQueueLen)
	l.envInt("QUEUEENGINE_IDLE_DETACH_SECONDS", &cfg.IdleDetachSeconds)
	l.envInt("QUEUEENGINE_MAX_TRACK_DURATION_SECONDS", &cfg.MaxTrackDurationSeconds)
	l.envInt("QUEUEENGINE_MAX_QUEUE_LENGTH", &cfg.MaxQueueLength)

	if v, ok := l.lookupEnvFn("QUEUEENGINE_FAIRNESS_MODE"); ok {
		mode, err := fairnessModeOf(v)
		if err != nil {
			return err
		}
		cfg.FairnessMode = mode
	}

	l.envBool("QUEUEENGINE_PROVIDER_YOUTUBE_ENABLED", &cfg.Providers.YouTube.Enabled)
	l.envBool("QUEUEENGINE_PROVIDER_BILIBILI_ENABLED", &cfg.Providers.Bilibili.Enabled)
	l.envBool("QUEUEENGINE_PROVIDER_SOUNDCLOUD_ENABLED", &cfg.Providers.SoundCloud.Enabled)
	l.envBool("QUEUEENGINE_PROVIDER_CATBOX_ENABLED", &cfg.Providers.Catbox.Enabled)
	l.envBool("QUEUEENGINE_PROVIDER_GENERIC_ENABLED", &cfg.Providers.Generic.Enabled)
	l.envBool("QUEUEENGINE_PROVIDER_NETEASE_ENABLED", &cfg.Providers.Netease.Enabled)
	l.envString("QUEUEENGINE_PROVIDER_NETEASE_PROXY_URL", &cfg.Providers.Netease.ProxyURL)
	l.envString("QUEUEENGINE_PROVIDER_NETEASE_MEMBER_COOKIE", &cfg.Providers.Netease.MemberCookie)
	return nil
}

func fairnessModeOf(s string) (fairness.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return fairness.ModeStrict, nil
	case "lenient":
		return fairness.ModeLenient, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFairnessMode, s)
	}
}
