// Package config loads tunable parameters for the delta pool engine from
// a JSON file, with every field optional so partial overrides of the
// built-in defaults are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the conventional location of a tuning file. Nothing
// reads it automatically: without a -config flag the server binary uses
// the built-in defaults.
const DefaultConfigPath = "config/tuning.defaults.json"

// EngineTuning is the root configuration for the delta pool engine's
// scoring and pacing parameters. Fields omitted from a JSON file retain
// their built-in defaults, so partial configs are safe.
type EngineTuning struct {
	// Rater params
	BaseScoreObject           *float64 `json:"base_score_object,omitempty"`
	BaseScorePlayer           *float64 `json:"base_score_player,omitempty"`
	BaseScoreSector           *float64 `json:"base_score_sector,omitempty"`
	BaseScoreSide             *float64 `json:"base_score_side,omitempty"`
	BaseScorePolyobject       *float64 `json:"base_score_polyobject,omitempty"`
	BaseScoreSound            *float64 `json:"base_score_sound,omitempty"`
	AgeDoublingPeriodNormalMs *int64   `json:"age_doubling_period_normal_ms,omitempty"`
	AgeDoublingPeriodSoundMs  *int64   `json:"age_doubling_period_sound_ms,omitempty"`

	// Diff generator params
	SidePartitionCount *int     `json:"side_partition_count,omitempty"`
	PlaneSkipLimit     *float64 `json:"plane_skip_limit,omitempty"`

	// Distance/ack params
	SoundMaxDistanceBase *float64 `json:"sound_max_distance_base,omitempty"`
	AckThresholdMs       *int64   `json:"ack_threshold_ms,omitempty"`
}

// EmptyEngineTuning returns an EngineTuning with every field nil. Use
// LoadEngineTuning to populate one from a file.
func EmptyEngineTuning() *EngineTuning { return &EngineTuning{} }

// LoadEngineTuning loads an EngineTuning from a JSON file. The file is
// required to have a .json extension and to be under the max file size,
// mirroring the server's other file-ingestion paths.
func LoadEngineTuning(path string) (*EngineTuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyEngineTuning()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that any set fields hold sane values.
func (c *EngineTuning) Validate() error {
	if c.SidePartitionCount != nil && *c.SidePartitionCount < 1 {
		return fmt.Errorf("side_partition_count must be at least 1, got %d", *c.SidePartitionCount)
	}
	if c.PlaneSkipLimit != nil && *c.PlaneSkipLimit < 0 {
		return fmt.Errorf("plane_skip_limit must be non-negative, got %f", *c.PlaneSkipLimit)
	}
	if c.AckThresholdMs != nil && *c.AckThresholdMs < 0 {
		return fmt.Errorf("ack_threshold_ms must be non-negative, got %d", *c.AckThresholdMs)
	}
	return nil
}

func (c *EngineTuning) GetBaseScoreObject() float64 { return orDefault(c.BaseScoreObject, 1000) }
func (c *EngineTuning) GetBaseScorePlayer() float64 { return orDefault(c.BaseScorePlayer, 1000) }
func (c *EngineTuning) GetBaseScoreSector() float64 { return orDefault(c.BaseScoreSector, 2000) }
func (c *EngineTuning) GetBaseScoreSide() float64   { return orDefault(c.BaseScoreSide, 800) }

func (c *EngineTuning) GetBaseScorePolyobject() float64 {
	return orDefault(c.BaseScorePolyobject, 2000)
}
func (c *EngineTuning) GetBaseScoreSound() float64 { return orDefault(c.BaseScoreSound, 3000) }

func (c *EngineTuning) GetAgeDoublingPeriodNormalMs() int64 {
	return orDefault(c.AgeDoublingPeriodNormalMs, 1000)
}
func (c *EngineTuning) GetAgeDoublingPeriodSoundMs() int64 {
	return orDefault(c.AgeDoublingPeriodSoundMs, 1)
}

// GetSidePartitionCount returns the number of rolling partitions the side
// diff pass divides the map's sides into.
func (c *EngineTuning) GetSidePartitionCount() int { return orDefault(c.SidePartitionCount, 2) }

// GetPlaneSkipLimit returns the map-unit hysteresis threshold below which
// a sector plane's height movement is not yet worth a delta.
func (c *EngineTuning) GetPlaneSkipLimit() float64 { return orDefault(c.PlaneSkipLimit, 40) }

func (c *EngineTuning) GetSoundMaxDistanceBase() float64 {
	return orDefault(c.SoundMaxDistanceBase, 2025)
}

// GetAckThresholdMs returns the minimum age an UNACKED delta must reach
// before being reconsidered for resend. The network layer that would set
// this non-zero has never shipped; it defaults to, and in practice always
// is, zero.
func (c *EngineTuning) GetAckThresholdMs() int64 { return orDefault(c.AckThresholdMs, 0) }

func orDefault[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}
