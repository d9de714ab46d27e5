// ABOUTME: Context pipeline configuration: limits, strategy selection, feature gates.
// ABOUTME: Defaults match the standard interactive-session profile.

package fidelity

import "fmt"

// Strategy selects the truncation algorithm.
type Strategy string

const (
	StrategySimpleSlidingWindow Strategy = "simple_sliding_window"
	StrategySmartSlidingWindow  Strategy = "smart_sliding_window"
	StrategyImportanceBased     Strategy = "importance_based"
)

// SystemHandling is the policy for multiple system messages during truncation.
type SystemHandling string

const (
	SystemAlwaysKeep SystemHandling = "always_keep"
	SystemLatestOnly SystemHandling = "latest_only"
	SystemSmartMerge SystemHandling = "smart_merge"
)

// EstimationMode selects the token estimation heuristic.
type EstimationMode string

const (
	EstimateSimple   EstimationMode = "simple"
	EstimateEnhanced EstimationMode = "enhanced"
	EstimatePrecise  EstimationMode = "precise"
)

// Config bounds the message list handed to the model.
type Config struct {
	MaxMessages       int            `yaml:"max_messages"`
	MaxTokens         int            `yaml:"max_tokens"`
	MaxBytes          int            `yaml:"max_bytes"`
	MaxLines          int            `yaml:"max_lines"`
	MinRecentMessages int            `yaml:"min_recent_messages"`
	SystemHandling    SystemHandling `yaml:"system_message_handling"`
	Strategy          Strategy       `yaml:"truncation_strategy"`
	EstimationMode    EstimationMode `yaml:"token_estimation_mode"`

	EnableSensitiveFiltering bool    `yaml:"enable_sensitive_filtering"`
	EnableCuration           bool    `yaml:"enable_curation"`
	CompressionThreshold     float64 `yaml:"compression_threshold"`
}

// DefaultConfig returns the standard interactive profile.
func DefaultConfig() Config {
	return Config{
		MaxMessages:              100,
		MaxTokens:                8000,
		MaxBytes:                 262144,
		MaxLines:                 4000,
		MinRecentMessages:        5,
		SystemHandling:           SystemAlwaysKeep,
		Strategy:                 StrategySmartSlidingWindow,
		EstimationMode:           EstimateEnhanced,
		EnableSensitiveFiltering: true,
		EnableCuration:           true,
		CompressionThreshold:     0.7,
	}
}

// ValidationError reports configuration or pipeline input that fails checks.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	if c.MaxMessages <= 0 {
		return &ValidationError{Field: "max_messages", Reason: "must be positive"}
	}
	if c.MaxTokens <= 0 {
		return &ValidationError{Field: "max_tokens", Reason: "must be positive"}
	}
	if c.MaxBytes <= 0 {
		return &ValidationError{Field: "max_bytes", Reason: "must be positive"}
	}
	if c.MaxLines <= 0 {
		return &ValidationError{Field: "max_lines", Reason: "must be positive"}
	}
	if c.MinRecentMessages < 0 {
		return &ValidationError{Field: "min_recent_messages", Reason: "must be non-negative"}
	}
	if c.CompressionThreshold <= 0 || c.CompressionThreshold > 1 {
		return &ValidationError{Field: "compression_threshold", Reason: "must be in (0, 1]"}
	}
	switch c.Strategy {
	case StrategySimpleSlidingWindow, StrategySmartSlidingWindow, StrategyImportanceBased:
	default:
		return &ValidationError{Field: "truncation_strategy", Reason: "unknown strategy " + string(c.Strategy)}
	}
	switch c.SystemHandling {
	case SystemAlwaysKeep, SystemLatestOnly, SystemSmartMerge:
	default:
		return &ValidationError{Field: "system_message_handling", Reason: "unknown policy " + string(c.SystemHandling)}
	}
	return nil
}
