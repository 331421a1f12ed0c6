package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/reps.report/internal/fsutil"
	"github.com/banshee-data/reps.report/internal/monitoring"
	"github.com/banshee-data/reps.report/internal/pose/history"
	"github.com/banshee-data/reps.report/internal/pose/l1landmarks"
	"github.com/banshee-data/reps.report/internal/testutil"
)

func init() {
	monitoring.SetLogger(nil)
}

var t0 = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

// writeRecording writes one push-up: plank, bottom, then plank long
// enough for the rep to register.
func writeRecording(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	ts := t0
	add := func(pose func(time.Time) *l1landmarks.Frame, n int) {
		for i := 0; i < n; i++ {
			data, err := pose(ts).MarshalJSON()
			require.NoError(t, err)
			buf.Write(data)
			buf.WriteByte('\n')
			ts = ts.Add(100 * time.Millisecond)
		}
	}
	add(testutil.PlankPose, 10)
	add(testutil.PushupBottomPose, 10)
	add(testutil.PlankPose, 15)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestCountReplay(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "pushups.jsonl")
	store := filepath.Join(dir, "history.json")
	writeRecording(t, input)

	var out bytes.Buffer
	err := run(context.Background(), "count", []string{
		"-store", "json", "-json", store, "-input", input, "-exercise", "pushups",
	}, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "rep 1\n")
	assert.Contains(t, out.String(), "Push-ups: 1 reps in 00:03.")
	assert.Contains(t, out.String(), "saved session")

	records, err := history.NewFileStore(fsutil.OSFileSystem{}, store).All(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "pushups", records[0].Type)
	assert.Equal(t, 1, records[0].Count)
	assert.Equal(t, 3, records[0].DurationSec)
	assert.Equal(t, "source_ended", records[0].Reason)
	assert.True(t, records[0].Date.Equal(t0.Add(3400*time.Millisecond)))
}

func TestCountErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown exercise", []string{"-exercise", "burpees"}, "unknown exercise"},
		{"missing input", []string{"-input", filepath.Join(dir, "missing.jsonl")}, "unable to start"},
		{"unknown store", []string{"-store", "mongo"}, "unknown store"},
		{"stray argument", []string{"extra"}, "unexpected arguments"},
		{"bad config", []string{"-config", filepath.Join(dir, "tuning.yaml")}, ".json extension"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"-store", "json", "-json", filepath.Join(dir, "h.json")}, tt.args...)
			var out bytes.Buffer
			err := run(context.Background(), "count", args, &out)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseCountFlags(t *testing.T) {
	f, err := parseCountFlags([]string{"-serial", "/dev/ttyUSB0", "-baud", "9600", "-start-cmd", "start, fps=15"})
	require.NoError(t, err)
	assert.True(t, f.live, "a serial source is always live")
	assert.Equal(t, 9600, f.baud)

	src, err := f.source(strings.NewReader(""))
	require.NoError(t, err)
	assert.NotNil(t, src)

	f, err = parseCountFlags(nil)
	require.NoError(t, err)
	assert.False(t, f.live)
	assert.Equal(t, "-", f.input)
	assert.Equal(t, time.Duration(-1), f.countdown)
}

func TestHistoryCommand(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "history.json")
	common := []string{"-store", "json", "-json", store}

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), "history", common, &out))
	assert.Equal(t, "No training history yet.\n", out.String())

	fs := history.NewFileStore(fsutil.OSFileSystem{}, store)
	ctx := context.Background()
	require.NoError(t, fs.Append(ctx, history.Record{ID: "a", Date: t0, Type: "pushups", Count: 12, DurationSec: 75}))
	require.NoError(t, fs.Append(ctx, history.Record{ID: "b", Date: t0.Add(time.Hour), Type: "sitdowns", Count: 20, DurationSec: 90}))

	out.Reset()
	require.NoError(t, run(ctx, "history", common, &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "EXERCISE")
	assert.Contains(t, lines[1], "sitdowns")
	assert.Contains(t, lines[2], "01:15")

	out.Reset()
	require.NoError(t, run(ctx, "history", append(common, "-tz", "Asia/Kolkata"), &out))
	assert.Contains(t, out.String(), "Jun 1, 2026 14:30")
	assert.Error(t, run(ctx, "history", append(common, "-tz", "Nowhere/Special"), &out))

	out.Reset()
	require.NoError(t, run(ctx, "history", append(common, "-summary", "-type", "pushups"), &out))
	assert.Contains(t, out.String(), "pushups")
	assert.NotContains(t, out.String(), "sitdowns")

	plot := filepath.Join(dir, "history.png")
	chart := filepath.Join(dir, "history.html")
	out.Reset()
	require.NoError(t, run(ctx, "history", append(common, "-plot", plot, "-chart", chart), &out))
	for _, p := range []string{plot, chart} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestMigrateCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "reps.db")
	steps := []struct {
		action string
		want   string
	}{
		{"status", "version 0 of 3 (migrations pending)"},
		{"up", "version 3 of 3 (up to date)"},
		{"down", "version 2 of 3 (migrations pending)"},
	}
	for _, s := range steps {
		var out bytes.Buffer
		require.NoError(t, run(context.Background(), "migrate", []string{"-db", db, s.action}, &out), s.action)
		assert.Contains(t, out.String(), s.want, s.action)
	}

	var out bytes.Buffer
	assert.Error(t, run(context.Background(), "migrate", []string{"-db", db, "sideways"}, &out))
	assert.Error(t, run(context.Background(), "migrate", []string{"-db", db}, &out))
}

func TestGoalsCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "reps.db")
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, run(ctx, "goals", []string{"-db", db, "-add", "Fifty push-ups", "-xp", "150", "-coins", "5"}, &out))
	id := strings.TrimPrefix(strings.TrimSpace(out.String()), "added goal ")
	require.NotEmpty(t, id)

	out.Reset()
	require.NoError(t, run(ctx, "goals", []string{"-db", db}, &out))
	assert.Contains(t, out.String(), "level 1, 0/100 XP, 0 coins")
	assert.Contains(t, out.String(), "Fifty push-ups")

	out.Reset()
	require.NoError(t, run(ctx, "goals", []string{"-db", db, "-complete", id}, &out))
	assert.Contains(t, out.String(), "level 2, 50/120 XP, 5 coins")

	assert.Error(t, run(ctx, "goals", []string{"-db", db, "-complete", id}, &out))
	assert.Error(t, run(ctx, "goals", []string{"-db", db, "-add", "x", "-complete", id}, &out))
	assert.Error(t, run(ctx, "goals", []string{"-db", db, "-edit", id, "-delete", id}, &out))
}

func TestGoalsEditAndDelete(t *testing.T) {
	db := filepath.Join(t.TempDir(), "reps.db")
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, run(ctx, "goals", []string{"-db", db, "-add", "Squats", "-description", "mornings", "-xp", "40"}, &out))
	id := strings.TrimPrefix(strings.TrimSpace(out.String()), "added goal ")

	out.Reset()
	require.NoError(t, run(ctx, "goals", []string{"-db", db, "-edit", id, "-title", "Thirty squats", "-target", "30"}, &out))
	assert.Equal(t, "updated goal "+id+"\n", out.String())

	out.Reset()
	require.NoError(t, run(ctx, "goals", []string{"-db", db}, &out))
	assert.Contains(t, out.String(), "Thirty squats")
	assert.Contains(t, out.String(), "mornings")
	assert.Contains(t, out.String(), "40 XP / 10 coins")

	assert.Error(t, run(ctx, "goals", []string{"-db", db, "-edit", id, "-title", " "}, &out))
	assert.Error(t, run(ctx, "goals", []string{"-db", db, "-edit", "missing", "-title", "x"}, &out))

	out.Reset()
	require.NoError(t, run(ctx, "goals", []string{"-db", db, "-delete", id}, &out))
	assert.Equal(t, "deleted goal "+id+"\n", out.String())

	out.Reset()
	require.NoError(t, run(ctx, "goals", []string{"-db", db}, &out))
	assert.Contains(t, out.String(), "No goals yet.")
	assert.Error(t, run(ctx, "goals", []string{"-db", db, "-delete", id}, &out))
}

func TestUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	assert.ErrorIs(t, run(context.Background(), "dance", nil, &out), errUsage)

	require.NoError(t, run(context.Background(), "version", nil, &out))
	assert.True(t, strings.HasPrefix(out.String(), "reps "))
}

func TestCommonFlagsFromEnvironment(t *testing.T) {
	t.Setenv("REPS_STORE", "json")
	t.Setenv("REPS_JSON", "from-env.json")

	var c commonFlags
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.register(fs)
	require.NoError(t, fs.Parse(nil))
	assert.Equal(t, "json", c.store)
	assert.Equal(t, "from-env.json", c.jsonPath)
	assert.Equal(t, "reps.db", c.dbPath)

	require.NoError(t, fs.Parse([]string{"-store", "sqlite"}))
	assert.Equal(t, "sqlite", c.store)
}
