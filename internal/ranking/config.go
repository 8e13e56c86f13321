package ranking

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// EngagementWeights defines the per-unit weights of the engagement term.
type EngagementWeights struct {
	Heart         float64 `json:"heart"`          // Per heart (default: 1.0)
	Comment       float64 `json:"comment"`        // Per comment (default: 2.0)
	Share         float64 `json:"share"`          // Per share (default: 3.0)
	Completion    float64 `json:"completion"`     // Times completion rate (default: 1.5)
	ReportPenalty float64 `json:"report_penalty"` // Subtracted per report (default: 10.0)
}

// ContentWeights defines the content hierarchy bonuses and multipliers.
type ContentWeights struct {
	ImageBonus               float64 `json:"image_bonus"`                // Added when a post has an image (default: 2.5)
	DailyGratitudeMultiplier float64 `json:"daily_gratitude_multiplier"` // default: 3.0
	SimpleTextMultiplier     float64 `json:"simple_text_multiplier"`     // default: 0.5
}

// RecencyWeights defines the flat recency bonus and the window it applies to.
type RecencyWeights struct {
	Bonus       float64 `json:"bonus"`        // default: 1.0
	WindowHours float64 `json:"window_hours"` // default: 24
}

// Weights holds all post ranking weight configurations.
type Weights struct {
	Engagement          EngagementWeights `json:"engagement"`
	Content             ContentWeights    `json:"content"`
	Recency             RecencyWeights    `json:"recency"`
	FollowingMultiplier float64           `json:"following_multiplier"` // default: 1.5
}

// RecencyWindow returns the recency window as a duration.
func (w *Weights) RecencyWindow() time.Duration {
	return time.Duration(w.Recency.WindowHours * float64(time.Hour))
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string  `json:"version"` // Config version for future compatibility
	Weights Weights `json:"weights"` // Weight configurations
}

// DefaultWeights returns the default post ranking configuration.
//
// Formula, applied to a running total:
//
//	base  = hearts*1.0 + comments*2.0 + shares*3.0 + completion*1.5 - reports*10.0
//	base += 2.5                  if the post has an image
//	base *= 3.0 | 0.5 | 1.0      daily_gratitude | simple_text | other
//	base += 1.0                  if created within the last 24h
//	base *= 1.5                  if the viewer follows the author
func DefaultWeights() *Weights {
	return &Weights{
		Engagement: EngagementWeights{
			Heart:         1.0,
			Comment:       2.0,
			Share:         3.0,
			Completion:    1.5,
			ReportPenalty: 10.0,
		},
		Content: ContentWeights{
			ImageBonus:               2.5,
			DailyGratitudeMultiplier: 3.0,
			SimpleTextMultiplier:     0.5,
		},
		Recency: RecencyWeights{
			Bonus:       1.0,
			WindowHours: 24,
		},
		FollowingMultiplier: 1.5,
	}
}

// LoadCalibration loads ranking weights from a JSON calibration file.
// If the file doesn't exist or can't be read, returns default weights with an error.
// Partial configurations are merged with defaults for graceful degradation.
func LoadCalibration(filePath string) (*Weights, error) {
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultWeights()
	merged := MergeCalibration(defaults, &config.Weights)
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges override weights with base weights.
// Only non-zero values from the override are applied, so a calibration file
// cannot switch a component off by writing 0.
func MergeCalibration(base *Weights, override *Weights) *Weights {
	if base == nil {
		return DefaultWeights()
	}

	result := *base
	if override == nil {
		return &result
	}

	mergeFloat(&result.Engagement.Heart, override.Engagement.Heart)
	mergeFloat(&result.Engagement.Comment, override.Engagement.Comment)
	mergeFloat(&result.Engagement.Share, override.Engagement.Share)
	mergeFloat(&result.Engagement.Completion, override.Engagement.Completion)
	mergeFloat(&result.Engagement.ReportPenalty, override.Engagement.ReportPenalty)

	mergeFloat(&result.Content.ImageBonus, override.Content.ImageBonus)
	mergeFloat(&result.Content.DailyGratitudeMultiplier, override.Content.DailyGratitudeMultiplier)
	mergeFloat(&result.Content.SimpleTextMultiplier, override.Content.SimpleTextMultiplier)

	mergeFloat(&result.Recency.Bonus, override.Recency.Bonus)
	mergeFloat(&result.Recency.WindowHours, override.Recency.WindowHours)

	mergeFloat(&result.FollowingMultiplier, override.FollowingMultiplier)

	return &result
}

func mergeFloat(dst *float64, override float64) {
	if override != 0 {
		*dst = override
	}
}

// logCalibrationOverrides logs which weights were overridden from defaults.
func logCalibrationOverrides(defaults *Weights, loaded *Weights) {
	pairs := []struct {
		name      string
		def, curr float64
	}{
		{"engagement.heart", defaults.Engagement.Heart, loaded.Engagement.Heart},
		{"engagement.comment", defaults.Engagement.Comment, loaded.Engagement.Comment},
		{"engagement.share", defaults.Engagement.Share, loaded.Engagement.Share},
		{"engagement.completion", defaults.Engagement.Completion, loaded.Engagement.Completion},
		{"engagement.report_penalty", defaults.Engagement.ReportPenalty, loaded.Engagement.ReportPenalty},
		{"content.image_bonus", defaults.Content.ImageBonus, loaded.Content.ImageBonus},
		{"content.daily_gratitude_multiplier", defaults.Content.DailyGratitudeMultiplier, loaded.Content.DailyGratitudeMultiplier},
		{"content.simple_text_multiplier", defaults.Content.SimpleTextMultiplier, loaded.Content.SimpleTextMultiplier},
		{"recency.bonus", defaults.Recency.Bonus, loaded.Recency.Bonus},
		{"recency.window_hours", defaults.Recency.WindowHours, loaded.Recency.WindowHours},
		{"following_multiplier", defaults.FollowingMultiplier, loaded.FollowingMultiplier},
	}

	var overrides []string
	for _, p := range pairs {
		if p.def != p.curr {
			overrides = append(overrides, fmt.Sprintf("%s: %.2f -> %.2f", p.name, p.def, p.curr))
		}
	}

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}
