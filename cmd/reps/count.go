package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/reps.report/internal/pose/exercise"
	"github.com/banshee-data/reps.report/internal/pose/history"
	"github.com/banshee-data/reps.report/internal/pose/l1landmarks"
	"github.com/banshee-data/reps.report/internal/pose/l6levels"
	"github.com/banshee-data/reps.report/internal/pose/pipeline"
	"github.com/banshee-data/reps.report/internal/pose/source"
)

// consoleSink prints the events a person counting along cares about.
type consoleSink struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

func (s *consoleSink) Emit(ev pipeline.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Kind {
	case pipeline.EventRepCompleted:
		fmt.Fprintf(s.w, "rep %d\n", ev.Count)
	case pipeline.EventLevelCompleted:
		if ev.NextGoal != nil {
			fmt.Fprintf(s.w, "level %d complete, next goal %d\n", ev.LevelIndex+1, *ev.NextGoal)
		} else {
			fmt.Fprintf(s.w, "level %d complete\n", ev.LevelIndex+1)
		}
	case pipeline.EventSessionCompleted:
		fmt.Fprintf(s.w, "all levels complete with %d reps\n", ev.Count)
	case pipeline.EventCountdown:
		fmt.Fprintf(s.w, "starting in %d...\n", ev.Remaining)
	case pipeline.EventPhaseChanged:
		if s.verbose && ev.Status != "" {
			fmt.Fprintf(s.w, "%s: %s\n", ev.Phase, ev.Status)
		}
	case pipeline.EventFrameSkipped:
		if s.verbose {
			fmt.Fprintln(s.w, "tracking lost")
		}
	}
}

type countFlags struct {
	commonFlags
	exercise   string
	input      string
	live       bool
	serialPath string
	baud       int
	startCmds  string
	countdown  time.Duration
	verbose    bool
}

func parseCountFlags(args []string) (*countFlags, error) {
	fs := flag.NewFlagSet("count", flag.ContinueOnError)
	f := &countFlags{}
	f.register(fs)
	fs.StringVar(&f.exercise, "exercise", string(exercise.TypePushups), "Exercise to count")
	fs.StringVar(&f.input, "input", "-", "Landmark JSON lines file, - for stdin")
	fs.BoolVar(&f.live, "live", false, "Treat input as a live stream: latest frame wins, timing from the wall clock")
	fs.StringVar(&f.serialPath, "serial", "", "Read frames from this serial port instead of -input (implies -live)")
	fs.IntVar(&f.baud, "baud", 115200, "Serial baud rate")
	fs.StringVar(&f.startCmds, "start-cmd", "", "Comma-separated commands sent to the serial device after opening")
	fs.DurationVar(&f.countdown, "countdown", -1, "Countdown before a live session (default from config)")
	fs.BoolVar(&f.verbose, "v", false, "Print phase changes and tracking loss")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if f.serialPath != "" {
		f.live = true
	}
	return f, nil
}

func runCount(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	f, err := parseCountFlags(args)
	if err != nil {
		return err
	}
	f.apply()

	registry, err := f.registry()
	if err != nil {
		return err
	}
	def, err := registry.Lookup(exercise.Type(f.exercise))
	if err != nil {
		return fmt.Errorf("%w (available: %v)", err, registry.Types())
	}
	store, _, closeStore, err := f.historyStore()
	if err != nil {
		return err
	}
	defer closeStore()

	src, err := f.source(stdin)
	if err != nil {
		return err
	}
	sink := &consoleSink{w: stdout, verbose: f.verbose}
	recorder := pipeline.NewRecorder(store)

	var (
		count   int
		elapsed time.Duration
		rec     *history.Record
	)
	if f.live {
		countdown := registry.Countdown()
		if f.countdown >= 0 {
			countdown = f.countdown
		}
		count, elapsed, rec, err = countLive(ctx, def, src, recorder, sink, countdown)
	} else {
		count, elapsed, rec, err = countReplay(ctx, def, src, recorder, sink)
	}
	if errors.Is(err, pipeline.ErrUnableToStart) {
		return err
	}

	fmt.Fprintf(stdout, "%s: %d reps in %s. %s\n", def.Name, count, l6levels.FormatTime(elapsed), l6levels.Evaluate(count, def.LevelGoals))
	if rec != nil && err == nil {
		fmt.Fprintf(stdout, "saved session %s\n", rec.ID)
	}
	return err
}

func (f *countFlags) source(stdin io.Reader) (pipeline.FrameSource, error) {
	if f.serialPath != "" {
		var cmds []string
		for _, c := range strings.Split(f.startCmds, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cmds = append(cmds, c)
			}
		}
		src, err := source.NewSerialSource(source.SerialConfig{
			Path:          f.serialPath,
			Options:       source.PortOptions{BaudRate: f.baud},
			StartCommands: cmds,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	if f.input == "-" {
		return source.NewReaderSource(stdin, source.ReaderOptions{}), nil
	}
	return source.NewFileSource(f.input, source.ReaderOptions{}), nil
}

// countLive runs the source through a Controller until it ends, the last
// level completes or ctx is cancelled.
func countLive(ctx context.Context, def *exercise.Definition, src pipeline.FrameSource, recorder *pipeline.Recorder, sink pipeline.EventSink, countdown time.Duration) (int, time.Duration, *history.Record, error) {
	c, err := pipeline.NewController(pipeline.ControllerConfig{
		Definition: def,
		Recorder:   recorder,
		Sink:       pipeline.MultiSink{pipeline.LogSink{}, sink},
		Countdown:  countdown,
	})
	if err != nil {
		return 0, 0, nil, err
	}
	if err := c.Start(ctx, src); err != nil {
		return 0, 0, nil, err
	}
	<-c.Done()
	rec, err := c.Finish(context.WithoutCancel(ctx), pipeline.ReasonUnload)
	c.Wait()
	snap := c.Snapshot()
	return snap.Count, time.Duration(snap.ElapsedSec) * time.Second, rec, err
}

// countReplay processes every frame of a recording in order, timing the
// phase guards by each frame's own timestamp.
func countReplay(ctx context.Context, def *exercise.Definition, src pipeline.FrameSource, recorder *pipeline.Recorder, sink pipeline.EventSink) (int, time.Duration, *history.Record, error) {
	if err := src.Open(ctx); err != nil {
		return 0, 0, nil, fmt.Errorf("%w: %v", pipeline.ErrUnableToStart, err)
	}
	defer src.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		sess        *pipeline.Session
		first, last time.Time
		procErr     error
		reason      = pipeline.ReasonSourceEnded
		id          = uuid.NewString()
	)
	streamErr := src.Stream(ctx, func(f *l1landmarks.Frame) {
		if procErr != nil || reason == pipeline.ReasonMaxLevel {
			return
		}
		if sess == nil {
			sess, procErr = pipeline.NewSession(id, def, f.Timestamp, pipeline.MultiSink{pipeline.LogSink{}, sink})
			if procErr != nil {
				cancel()
				return
			}
			first = f.Timestamp
		}
		if f.Timestamp.Before(last) {
			// Out-of-order frames would run the phase guards backwards.
			return
		}
		last = f.Timestamp
		res, err := sess.Process(f, f.Timestamp)
		if err != nil && !errors.Is(err, l1landmarks.ErrIncompleteFrame) {
			procErr = err
			cancel()
			return
		}
		if res.SessionCompleted {
			reason = pipeline.ReasonMaxLevel
			cancel()
		}
	})
	if procErr != nil {
		return 0, 0, nil, procErr
	}
	if streamErr != nil && !errors.Is(streamErr, context.Canceled) {
		return 0, 0, nil, streamErr
	}
	if streamErr != nil && reason != pipeline.ReasonMaxLevel {
		reason = pipeline.ReasonUnload
	}
	if sess == nil {
		return 0, 0, nil, nil
	}

	elapsed := last.Sub(first)
	rec, err := recorder.Record(context.WithoutCancel(ctx), pipeline.Summary{
		SessionID: id,
		Type:      def.Type,
		Count:     sess.Count(),
		Duration:  elapsed,
		EndedAt:   last,
		Reason:    reason,
	})
	return sess.Count(), elapsed, rec, err
}
