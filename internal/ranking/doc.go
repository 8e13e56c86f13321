// Package ranking provides the post scoring function and its calibration
// support for the feed.
//
// Basic Usage:
//
//	// Load calibration (typically at startup)
//	weights, err := ranking.LoadCalibration("configs/ranking.calibration.json")
//	if err != nil {
//		log.Warn("using default weights", "error", err)
//	}
//
//	params := ranking.PostParams{
//		HasImage:       p.ImageURL != nil,
//		Type:           p.Type,
//		CompletionRate: p.CompletionRate,
//		ReportCount:    p.ReportCount,
//		CreatedAt:      p.CreatedAt,
//	}
//	score := ranking.Score(params, counts[p.ID], ranking.RelationFollowing, time.Now(), weights)
//
// Component Functions:
//
// EngagementWeight, TypeMultiplier, IsRecent and RelationMultiplier expose the
// individual steps of Score so callers can explain a score without
// re-implementing the formula.
//
// Calibration:
//
// Weights can be tuned at deploy time via a JSON file loaded at startup
// (configs/ranking.calibration.json). The shipped file reproduces the
// defaults; zero values in the file leave the default in place.
package ranking
