package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// Movement patterns an exercise can follow.
const (
	PatternCycle = "cycle" // up, down to the bottom, back up
	PatternRaise = "raise" // lift, lower, counted on completion
)

// TuningConfig represents the root configuration for tuning parameters.
// Root-level stability and timing values apply to every exercise unless the
// exercise overrides them.
type TuningConfig struct {
	// Stability params
	StabilityWindow   *int     `json:"stability_window,omitempty"`
	StabilityMajority *int     `json:"stability_majority,omitempty"`
	MinVisibility     *float64 `json:"min_visibility,omitempty"`

	// Timing params
	MinPhaseDuration *string `json:"min_phase_duration,omitempty"` // duration string like "500ms"
	Countdown        *string `json:"countdown,omitempty"`          // duration string like "3s"

	// Exercises keyed by their history type tag ("pushups", "sitdowns", ...).
	Exercises map[string]*ExerciseTuning `json:"exercises,omitempty"`
}

// ExerciseTuning holds the data that defines one exercise. Nil fields fall
// back to the root config or the built-in defaults.
type ExerciseTuning struct {
	Name       *string `json:"name,omitempty"`
	Pattern    *string `json:"pattern,omitempty"`
	UpSignal   *string `json:"up_signal,omitempty"`
	DownSignal *string `json:"down_signal,omitempty"`

	// Classifier thresholds
	PlankAlignment       *float64 `json:"plank_alignment,omitempty"`
	PlankElbowMin        *float64 `json:"plank_elbow_min,omitempty"`
	HandsUnderShoulders  *float64 `json:"hands_under_shoulders,omitempty"`
	PushupBottomElbowMax *float64 `json:"pushup_bottom_elbow_max,omitempty"`
	SquatBottomKneeMax   *float64 `json:"squat_bottom_knee_max,omitempty"`
	StandingLegTolerance *float64 `json:"standing_leg_tolerance,omitempty"`
	HandsRaiseMargin     *float64 `json:"hands_raise_margin,omitempty"`

	// Per-exercise overrides of root params
	StabilityWindow   *int    `json:"stability_window,omitempty"`
	StabilityMajority *int    `json:"stability_majority,omitempty"`
	SmoothingWindow   *int    `json:"smoothing_window,omitempty"`
	MinPhaseDuration  *string `json:"min_phase_duration,omitempty"`

	LevelGoals []int             `json:"level_goals,omitempty"`
	Messages   map[string]string `json:"messages,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig mirrors config/tuning.defaults.json for binaries run
// without a config file.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		StabilityWindow:   ptrInt(5),
		StabilityMajority: ptrInt(4),
		MinVisibility:     ptrFloat64(0),
		MinPhaseDuration:  ptrString("500ms"),
		Countdown:         ptrString("3s"),
		Exercises: map[string]*ExerciseTuning{
			"pushups": {
				Name:                 ptrString("Push-ups"),
				Pattern:              ptrString(PatternCycle),
				UpSignal:             ptrString("plank"),
				DownSignal:           ptrString("pushup_bottom"),
				PlankAlignment:       ptrFloat64(0.1),
				PlankElbowMin:        ptrFloat64(150),
				HandsUnderShoulders:  ptrFloat64(0.1),
				PushupBottomElbowMax: ptrFloat64(90),
				LevelGoals:           []int{10, 20, 30},
			},
			"sitdowns": {
				Name:                 ptrString("Sit-downs"),
				Pattern:              ptrString(PatternCycle),
				UpSignal:             ptrString("standing"),
				DownSignal:           ptrString("squat_bottom"),
				SquatBottomKneeMax:   ptrFloat64(130),
				StandingLegTolerance: ptrFloat64(0.1),
				SmoothingWindow:      ptrInt(5),
				MinPhaseDuration:     ptrString("300ms"),
				LevelGoals:           []int{20, 45, 60},
			},
			"handsup": {
				Name:             ptrString("Hands up"),
				Pattern:          ptrString(PatternRaise),
				UpSignal:         ptrString("hands_raised"),
				DownSignal:       ptrString("hands_lowered"),
				HandsRaiseMargin: ptrFloat64(0.2),
				LevelGoals:       []int{10, 20, 30},
			},
		},
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file keep their nil value and resolve to
// defaults through the Get* methods, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/pose/pipeline/
		"../../../../" + DefaultConfigPath, // from internal/pose/storage/sqlite/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if err := validateStability(c.StabilityWindow, c.StabilityMajority); err != nil {
		return err
	}
	if c.MinVisibility != nil && (*c.MinVisibility < 0 || *c.MinVisibility > 1) {
		return fmt.Errorf("min_visibility must be between 0 and 1, got %f", *c.MinVisibility)
	}
	if err := validateDuration("min_phase_duration", c.MinPhaseDuration); err != nil {
		return err
	}
	if err := validateDuration("countdown", c.Countdown); err != nil {
		return err
	}
	for _, name := range c.ExerciseNames() {
		if err := c.Exercises[name].validate(); err != nil {
			return fmt.Errorf("exercise %q: %w", name, err)
		}
	}
	return nil
}

func (e *ExerciseTuning) validate() error {
	if e == nil {
		return fmt.Errorf("empty exercise entry")
	}
	if p := e.GetPattern(); p != PatternCycle && p != PatternRaise {
		return fmt.Errorf("pattern must be %q or %q, got %q", PatternCycle, PatternRaise, p)
	}
	if e.UpSignal == nil || e.DownSignal == nil {
		return fmt.Errorf("up_signal and down_signal are required")
	}
	for name, v := range map[string]*float64{
		"plank_elbow_min":         e.PlankElbowMin,
		"pushup_bottom_elbow_max": e.PushupBottomElbowMax,
		"squat_bottom_knee_max":   e.SquatBottomKneeMax,
	} {
		if v != nil && (*v <= 0 || *v > 180) {
			return fmt.Errorf("%s must be in (0, 180], got %f", name, *v)
		}
	}
	for name, v := range map[string]*float64{
		"plank_alignment":        e.PlankAlignment,
		"hands_under_shoulders":  e.HandsUnderShoulders,
		"standing_leg_tolerance": e.StandingLegTolerance,
		"hands_raise_margin":     e.HandsRaiseMargin,
	} {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
		}
	}
	if err := validateStability(e.StabilityWindow, e.StabilityMajority); err != nil {
		return err
	}
	if e.SmoothingWindow != nil && *e.SmoothingWindow < 0 {
		return fmt.Errorf("smoothing_window must be non-negative, got %d", *e.SmoothingWindow)
	}
	if err := validateDuration("min_phase_duration", e.MinPhaseDuration); err != nil {
		return err
	}
	for i, g := range e.LevelGoals {
		if g <= 0 || (i > 0 && g <= e.LevelGoals[i-1]) {
			return fmt.Errorf("level_goals must be positive and strictly increasing, got %v", e.LevelGoals)
		}
	}
	return nil
}

func validateStability(window, majority *int) error {
	if window != nil && *window < 1 {
		return fmt.Errorf("stability_window must be positive, got %d", *window)
	}
	if majority != nil && *majority < 1 {
		return fmt.Errorf("stability_majority must be positive, got %d", *majority)
	}
	if window != nil && majority != nil && *majority > *window {
		return fmt.Errorf("stability_majority (%d) exceeds stability_window (%d)", *majority, *window)
	}
	return nil
}

func validateDuration(field string, v *string) error {
	if v == nil || *v == "" {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("invalid %s '%s': %w", field, *v, err)
	}
	if d < 0 {
		return fmt.Errorf("%s must be non-negative, got %s", field, *v)
	}
	return nil
}

func parseDurationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def // default on parse error
	}
	return d
}

// ExerciseNames lists configured exercises in sorted order.
func (c *TuningConfig) ExerciseNames() []string {
	names := make([]string, 0, len(c.Exercises))
	for name := range c.Exercises {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetStabilityWindow returns the stability_window value or the default.
func (c *TuningConfig) GetStabilityWindow() int {
	if c.StabilityWindow == nil {
		return 5 // default
	}
	return *c.StabilityWindow
}

// GetStabilityMajority returns the stability_majority value or the default.
func (c *TuningConfig) GetStabilityMajority() int {
	if c.StabilityMajority == nil {
		return 4 // default
	}
	return *c.StabilityMajority
}

// GetMinVisibility returns the min_visibility value or the default.
func (c *TuningConfig) GetMinVisibility() float64 {
	if c.MinVisibility == nil {
		return 0 // default: disabled
	}
	return *c.MinVisibility
}

// GetMinPhaseDuration parses and returns the MinPhaseDuration as a time.Duration.
func (c *TuningConfig) GetMinPhaseDuration() time.Duration {
	return parseDurationOr(c.MinPhaseDuration, 500*time.Millisecond)
}

// GetCountdown parses and returns the Countdown as a time.Duration.
func (c *TuningConfig) GetCountdown() time.Duration {
	return parseDurationOr(c.Countdown, 3*time.Second)
}

// GetName returns the display name or fallback.
func (e *ExerciseTuning) GetName(fallback string) string {
	if e.Name == nil || *e.Name == "" {
		return fallback
	}
	return *e.Name
}

// GetPattern returns the pattern value or the default.
func (e *ExerciseTuning) GetPattern() string {
	if e.Pattern == nil {
		return PatternCycle // default
	}
	return *e.Pattern
}

// GetStabilityWindow returns the exercise override or the root value.
func (e *ExerciseTuning) GetStabilityWindow(root *TuningConfig) int {
	if e.StabilityWindow == nil {
		return root.GetStabilityWindow()
	}
	return *e.StabilityWindow
}

// GetStabilityMajority returns the exercise override or the root value.
func (e *ExerciseTuning) GetStabilityMajority(root *TuningConfig) int {
	if e.StabilityMajority == nil {
		return root.GetStabilityMajority()
	}
	return *e.StabilityMajority
}

// GetSmoothingWindow returns the smoothing_window value or the default.
func (e *ExerciseTuning) GetSmoothingWindow() int {
	if e.SmoothingWindow == nil {
		return 0 // default: no smoothing
	}
	return *e.SmoothingWindow
}

// GetMinPhaseDuration returns the exercise override or the root value.
func (e *ExerciseTuning) GetMinPhaseDuration(root *TuningConfig) time.Duration {
	return parseDurationOr(e.MinPhaseDuration, root.GetMinPhaseDuration())
}

// GetLevelGoals returns the level goals or the default.
func (e *ExerciseTuning) GetLevelGoals() []int {
	if len(e.LevelGoals) == 0 {
		return []int{10, 20, 30} // default
	}
	return append([]int(nil), e.LevelGoals...)
}

// GetFloat returns *v or def. The threshold getters share it.
func GetFloat(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
