package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/banshee-data/reps.report/internal/api"
	"github.com/banshee-data/reps.report/internal/pose/exercise"
	"github.com/banshee-data/reps.report/internal/pose/pipeline"
	"github.com/banshee-data/reps.report/internal/pose/source"
)

func runPush(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("push", flag.ContinueOnError)
	server := fs.String("server", "http://localhost:8080", "reps server base URL")
	typ := fs.String("exercise", string(exercise.TypePushups), "Exercise to count")
	input := fs.String("input", "-", "Landmark JSON lines file, - for stdin")
	realtime := fs.Bool("realtime", true, "Pace frames by their ts_ms timestamps")
	countdown := fs.Duration("countdown", 0, "Countdown before counting starts on the server")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := source.ReaderOptions{Realtime: *realtime}
	var src *source.ReaderSource
	if *input == "-" {
		src = source.NewReaderSource(stdin, opts)
	} else {
		src = source.NewFileSource(*input, opts)
	}

	client := api.NewClient(*server, nil)
	snap, err := client.CreateSession(ctx, exercise.Type(*typ), countdown)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	fmt.Fprintf(stdout, "session %s (%s)\n", snap.ID, snap.Name)
	if *countdown > 0 {
		time.Sleep(*countdown)
	}

	sent, pushErr := client.Push(ctx, snap.ID, src)
	if pushErr != nil && !errors.Is(pushErr, pipeline.ErrUnableToStart) {
		fmt.Fprintf(stdout, "stopped after %d frames: %v\n", sent, pushErr)
	}

	reason := pipeline.ReasonFinished
	if ctx.Err() != nil {
		reason = pipeline.ReasonUnload
	}
	snap, err = client.Finish(context.WithoutCancel(ctx), snap.ID, reason)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	fmt.Fprintf(stdout, "sent %d frames, %d reps. %s\n", sent, snap.Count, snap.Verdict)
	return pushErr
}
