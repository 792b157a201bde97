package config

import (
	"fmt"

	"github.com/sonanterra/queueengine/internal/fairness"
)

// Validate checks cfg for internally inconsistent or out-of-range values.
// Limits of 0 are valid and mean "unbounded" (max_queue_length,
// max_track_duration_seconds); negative values are never valid.
func Validate(cfg AppConfig) error {
	if cfg.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if cfg.MaxPendingPerUser < 1 {
		return fmt.Errorf("max_pending_per_user must be >= 1")
	}
	if cfg.DuplicateThresholdQueueLen < 0 {
		return fmt.Errorf("%w: duplicate_threshold_queue_len", ErrNegativeLimit)
	}
	if cfg.IdleDetachSeconds < 0 {
		return fmt.Errorf("%w: idle_detach_seconds", ErrNegativeLimit)
	}
	if cfg.MaxTrackDurationSeconds < 0 {
		return fmt.Errorf("%w: max_track_duration_seconds", ErrNegativeLimit)
	}
	if cfg.MaxQueueLength < 0 {
		return fmt.Errorf("%w: max_queue_length", ErrNegativeLimit)
	}
	if cfg.FairnessMode != fairness.ModeStrict && cfg.FairnessMode != fairness.ModeLenient {
		return fmt.Errorf("%w: %q", ErrInvalidFairnessMode, cfg.FairnessMode)
	}
	return nil
}
