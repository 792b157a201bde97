package config

// fileConfig mirrors the YAML document shape. Every field is a pointer so
// the loader can tell "absent from file" apart from "explicitly zero",
// which matters for integer limits that default to a non-zero value.
type fileConfig struct {
	DataDir *string `yaml:"data_dir"`

	MaxPendingPerUser          *int    `yaml:"max_pending_per_user"`
	DuplicateThresholdQueueLen *int    `yaml:"duplicate_threshold_queue_len"`
	FairnessMode               *string `yaml:"fairness_mode"`
	IdleDetachSeconds          *int    `yaml:"idle_detach_seconds"`
	MaxTrackDurationSeconds    *int    `yaml:"max_track_duration_seconds"`
	MaxQueueLength             *int    `yaml:"max_queue_length"`

	Provider *fileProviders `yaml:"provider"`
}

type fileProviders struct {
	YouTube    *fileToggle  `yaml:"youtube"`
	Bilibili   *fileToggle  `yaml:"bilibili"`
	SoundCloud *fileToggle  `yaml:"soundcloud"`
	Catbox     *fileToggle  `yaml:"catbox"`
	Generic    *fileToggle  `yaml:"generic"`
	Netease    *fileNetease `yaml:"netease"`
}

type fileToggle struct {
	Enabled *bool `yaml:"enabled"`
}

type fileNetease struct {
	Enabled *bool        `yaml:"enabled"`
	Proxy   *fileNeteaseProxy  `yaml:"proxy"`
	Member  *fileNeteaseMember `yaml:"member"`
}

type fileNeteaseProxy struct {
	URL *string `yaml:"url"`
}

type fileNeteaseMember struct {
	Cookie *string `yaml:"cookie"`
}

func mergeFileConfig(cfg *AppConfig, f *fileConfig) error {
	if f == nil {
		return nil
	}
	if f.DataDir != nil {
		cfg.DataDir = *f.DataDir
	}
	if f.MaxPendingPerUser != nil {
		cfg.MaxPendingPerUser = *f.MaxPendingPerUser
	}
	if f.DuplicateThresholdQueueLen != nil {
		cfg.DuplicateThresholdQueueLen = *f.DuplicateThresholdQueueLen
	}
	if f.FairnessMode != nil {
		mode, err := fairnessModeOf(*f.FairnessMode)
		if err != nil {
			return err
		}
		cfg.FairnessMode = mode
	}
	if f.IdleDetachSeconds != nil {
		cfg.IdleDetachSeconds = *f.IdleDetachSeconds
	}
	if f.MaxTrackDurationSeconds != nil {
		cfg.MaxTrackDurationSeconds = *f.MaxTrackDurationSeconds
	}
	if f.MaxQueueLength != nil {
		cfg.MaxQueueLength = *f.MaxQueueLength
	}
	if f.Provider == nil {
		return nil
	}
	mergeToggle(&cfg.Providers.YouTube, f.Provider.YouTube)
	mergeToggle(&cfg.Providers.Bilibili, f.Provider.Bilibili)
	mergeToggle(&cfg.Providers.SoundCloud, f.Provider.SoundCloud)
	mergeToggle(&cfg.Providers.Catbox, f.Provider.Catbox)
	mergeToggle(&cfg.Providers.Generic, f.Provider.Generic)

	if n := f.Provider.Netease; n != nil {
		if n.Enabled != nil {
			cfg.Providers.Netease.Enabled = *n.Enabled
		}
		if n.Proxy != nil && n.Proxy.URL != nil {
			cfg.Providers.Netease.ProxyURL = *n.Proxy.URL
		}
		if n.Member != nil && n.Member.Cookie != nil {
			cfg.Providers.Netease.MemberCookie = *n.Member.Cookie
		}
	}
	return nil
}

func mergeToggle(dst *ProviderToggle, src *fileToggle) {
	if src == nil || src.Enabled == nil {
		return
	}
	dst.Enabled = *src.Enabled
}
