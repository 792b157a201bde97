// Package config loads the queue orchestration engine's configuration
// surface: per-guild fairness/queue limits, provider enablement, and the
// Netease proxy/cookie settings that source commonly needs outside
// mainland China. Precedence is environment over file over built-in
// defaults, following the teacher's loader shape.
package config

import "github.com/sonanterra/queueengine/internal/fairness"

// AppConfig is the fully resolved, validated configuration consumed by
// cmd/queueengine to build every component.
type AppConfig struct {
	DataDir string

	MaxPendingPerUser         int
	DuplicateThresholdQueueLen int
	FairnessMode              fairness.Mode
	IdleDetachSeconds         int
	MaxTrackDurationSeconds   int
	MaxQueueLength            int

	Providers ProvidersConfig
}

// ProvidersConfig toggles each provider and carries Netease's extra
// connectivity settings.
type ProvidersConfig struct {
	YouTube    ProviderToggle
	Bilibili   ProviderToggle
	SoundCloud ProviderToggle
	Catbox     ProviderToggle
	Generic    ProviderToggle
	Netease    NeteaseProviderConfig
}

// ProviderToggle is the common shape for a provider with no extra settings.
type ProviderToggle struct {
	Enabled bool
}

// NeteaseProviderConfig adds the proxy URL and member cookie Netease
// deployments outside mainland China commonly need.
type NeteaseProviderConfig struct {
	Enabled      bool
	ProxyURL     string
	MemberCookie string
}

// FairnessConfig projects the subset of AppConfig that
// fairness.NewTracker needs.
func (c AppConfig) FairnessConfig() fairness.Config {
	return fairness.Config{
		MaxPendingPerUser: c.MaxPendingPerUser,
		DupThreshold:      c.DuplicateThresholdQueueLen,
		Mode:              c.FairnessMode,
	}
}

// Defaults returns the documented built-in defaults, before any file or
// environment overlay is applied.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:                    "./data",
		MaxPendingPerUser:          1,
		DuplicateThresholdQueueLen: 5,
		FairnessMode:               fairness.ModeStrict,
		IdleDetachSeconds:          300,
		MaxTrackDurationSeconds:    3600,
		MaxQueueLength:             100,
		Providers: ProvidersConfig{
			YouTube:    ProviderToggle{Enabled: true},
			Bilibili:   ProviderToggle{Enabled: true},
			SoundCloud: ProviderToggle{Enabled: true},
			Catbox:     ProviderToggle{Enabled: true},
			Generic:    ProviderToggle{Enabled: true},
			Netease:    NeteaseProviderConfig{Enabled: false},
		},
	}
}
