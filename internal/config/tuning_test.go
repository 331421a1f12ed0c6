package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}

	if cfg.GetStabilityWindow() != 5 {
		t.Errorf("GetStabilityWindow() = %d, want 5", cfg.GetStabilityWindow())
	}
	if cfg.GetStabilityMajority() != 4 {
		t.Errorf("GetStabilityMajority() = %d, want 4", cfg.GetStabilityMajority())
	}
	if cfg.GetMinPhaseDuration() != 500*time.Millisecond {
		t.Errorf("GetMinPhaseDuration() = %v, want 500ms", cfg.GetMinPhaseDuration())
	}
	if cfg.GetCountdown() != 3*time.Second {
		t.Errorf("GetCountdown() = %v, want 3s", cfg.GetCountdown())
	}
	if got := cfg.ExerciseNames(); !reflect.DeepEqual(got, []string{"handsup", "pushups", "sitdowns"}) {
		t.Errorf("ExerciseNames() = %v", got)
	}
}

// The JSON defaults file and DefaultTuningConfig must not drift apart.
func TestDefaultsFileMatchesCode(t *testing.T) {
	fromFile := MustLoadDefaultConfig()
	if !reflect.DeepEqual(fromFile, DefaultTuningConfig()) {
		t.Errorf("config/tuning.defaults.json differs from DefaultTuningConfig()")
	}
}

func TestLoadTuningConfig(t *testing.T) {
	path := writeConfig(t, "test_config.json", `{
  "stability_window": 7,
  "min_phase_duration": "250ms",
  "exercises": {
    "pushups": {
      "up_signal": "plank",
      "down_signal": "pushup_bottom",
      "pushup_bottom_elbow_max": 80,
      "stability_majority": 6
    }
  }
}`)

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetStabilityWindow() != 7 {
		t.Errorf("GetStabilityWindow() = %d, want 7", cfg.GetStabilityWindow())
	}
	if cfg.GetStabilityMajority() != 4 {
		t.Errorf("omitted stability_majority should default to 4, got %d", cfg.GetStabilityMajority())
	}

	ex := cfg.Exercises["pushups"]
	if ex == nil {
		t.Fatal("pushups entry missing")
	}
	if ex.GetPattern() != PatternCycle {
		t.Errorf("GetPattern() = %q, want cycle", ex.GetPattern())
	}
	if ex.GetStabilityWindow(cfg) != 7 {
		t.Errorf("exercise should inherit stability_window 7, got %d", ex.GetStabilityWindow(cfg))
	}
	if ex.GetStabilityMajority(cfg) != 6 {
		t.Errorf("exercise override stability_majority = %d, want 6", ex.GetStabilityMajority(cfg))
	}
	if ex.GetMinPhaseDuration(cfg) != 250*time.Millisecond {
		t.Errorf("GetMinPhaseDuration() = %v, want inherited 250ms", ex.GetMinPhaseDuration(cfg))
	}
	if GetFloat(ex.PushupBottomElbowMax, 90) != 80 {
		t.Errorf("pushup_bottom_elbow_max = %v, want 80", GetFloat(ex.PushupBottomElbowMax, 90))
	}
	if GetFloat(ex.PlankElbowMin, 150) != 150 {
		t.Errorf("plank_elbow_min fallback = %v, want 150", GetFloat(ex.PlankElbowMin, 150))
	}
	if !reflect.DeepEqual(ex.GetLevelGoals(), []int{10, 20, 30}) {
		t.Errorf("GetLevelGoals() = %v, want default", ex.GetLevelGoals())
	}
	if ex.GetName("pushups") != "pushups" {
		t.Errorf("GetName() = %q, want fallback", ex.GetName("pushups"))
	}
}

func TestLoadTuningConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "config.yaml", `{}`, ".json extension"},
		{"bad json", "bad.json", `{"stability_window":`, "failed to parse"},
		{"majority above window", "c.json", `{"stability_window": 3, "stability_majority": 4}`, "exceeds"},
		{"bad duration", "c.json", `{"countdown": "soon"}`, "invalid countdown"},
		{"negative duration", "c.json", `{"min_phase_duration": "-1s"}`, "non-negative"},
		{"visibility range", "c.json", `{"min_visibility": 2}`, "min_visibility"},
		{"unknown pattern", "c.json", `{"exercises": {"x": {"pattern": "spin", "up_signal": "a", "down_signal": "b"}}}`, "pattern"},
		{"missing signals", "c.json", `{"exercises": {"x": {"pattern": "cycle"}}}`, "up_signal"},
		{"angle range", "c.json", `{"exercises": {"x": {"up_signal": "a", "down_signal": "b", "squat_bottom_knee_max": 200}}}`, "squat_bottom_knee_max"},
		{"goals order", "c.json", `{"exercises": {"x": {"up_signal": "a", "down_signal": "b", "level_goals": [5, 5]}}}`, "level_goals"},
		{"null exercise", "c.json", `{"exercises": {"x": null}}`, "empty exercise"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTuningConfig(writeConfig(t, tt.file, tt.body))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}

	if _, err := LoadTuningConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadTuningConfigTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.json")
	if err := os.WriteFile(path, make([]byte, 1024*1024+1), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTuningConfig(path); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}
