package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/dgallion1/typewriter/internal/charseq"
	"github.com/dgallion1/typewriter/internal/element"
	"github.com/dgallion1/typewriter/internal/parser"
	"github.com/dgallion1/typewriter/internal/playback"
	"github.com/dgallion1/typewriter/internal/render"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:      "reveal",
		Usage:     "plays a document in the terminal one character at a time",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.FloatFlag{Name: "speed", Aliases: []string{"s"}, Value: 1, Usage: "reveal rate multiplier"},
			&cli.DurationFlag{Name: "min-duration", Usage: "stretch the whole reveal to at least `DURATION`"},
			&cli.DurationFlag{Name: "max-duration", Usage: "compress the whole reveal to at most `DURATION` (0 means unbounded)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "content `TYPE` (html, md, txt, csv, pdf, docx); derived from the file extension when empty"},
			&cli.BoolFlag{Name: "reduced-motion", Usage: "show the content fully revealed instead of animating"},
			&cli.BoolFlag{Name: "html", Usage: "print the final HTML frame after playback"},
			&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "replay whenever the file changes"},
			&cli.DurationFlag{Name: "frame", Value: 16 * time.Millisecond, Usage: "frame `INTERVAL`"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log to stderr"},
		},
		Action: run,
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "reveal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return errors.New("exactly one FILE is required")
	}
	path := cmd.Args().First()

	level := slog.LevelWarn
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	popts := parser.Options{PDFFallbackPdftotext: true}
	seq, err := loadFile(path, cmd.String("format"), popts)
	if err != nil {
		return err
	}

	opts := element.Options{
		Speed:                   cmd.Float("speed"),
		MinDuration:             cmd.Duration("min-duration"),
		MaxDuration:             cmd.Duration("max-duration"),
		RespectMotionPreference: cmd.Bool("reduced-motion"),
	}
	return play(ctx, os.Stdout, term.IsTerminal(int(os.Stdout.Fd())), player{
		seq:     seq,
		opts:    opts,
		reduced: cmd.Bool("reduced-motion"),
		html:    cmd.Bool("html"),
		frame:   cmd.Duration("frame"),
		log:     log,
		watch: func(ctx context.Context, reload func(charseq.Sequence)) error {
			if !cmd.Bool("watch") {
				return nil
			}
			return watchFile(ctx, path, log, func() {
				seq, err := loadFile(path, cmd.String("format"), popts)
				if err != nil {
					log.Warn("reload failed", "path", path, "error", err)
					return
				}
				reload(seq)
			})
		},
	})
}

type player struct {
	seq     charseq.Sequence
	opts    element.Options
	reduced bool
	html    bool
	frame   time.Duration
	log     *slog.Logger

	// watch blocks until ctx ends, calling reload with fresh content. A
	// nil watch, or one returning immediately, plays the content once.
	watch func(ctx context.Context, reload func(charseq.Sequence)) error
}

// play runs one Typewriter on a private frame loop, writing to out.
func play(ctx context.Context, out io.Writer, color bool, p player) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := playback.NewFrameLoop(p.frame, p.log)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(ctx)
	}()
	defer func() {
		cancel()
		<-loopDone
	}()

	display := newTermDisplay(out, color)
	completed := make(chan struct{}, 1)
	tw := element.New(loop, display, p.seq, p.opts, element.StaticMotion(p.reduced), p.log)

	err := loop.Do(ctx, func() {
		tw.Subscribe(playback.EventComplete, func(playback.Event) {
			display.Finish()
			select {
			case completed <- struct{}{}:
			default:
			}
		})
		tw.OnAttach()
	})
	if err != nil {
		return err
	}

	watching := make(chan error, 1)
	if p.watch != nil {
		go func() {
			watching <- p.watch(ctx, func(seq charseq.Sequence) {
				_ = loop.Do(ctx, func() {
					tw.SetContent(seq)
					tw.Start()
				})
			})
		}()
	} else {
		watching <- nil
	}

	// Without a watcher the first completion ends playback; with one,
	// playback repeats until interrupted.
	select {
	case <-ctx.Done():
	case <-completed:
		select {
		case err := <-watching:
			if err != nil {
				return err
			}
		case <-ctx.Done():
		}
	}

	if !p.html {
		return nil
	}
	var seq charseq.Sequence
	if err := loop.Do(context.Background(), func() { seq = tw.Sequence() }); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, render.Frame(seq, seq.Len()))
	return err
}

func loadFile(path, format string, opts parser.Options) (charseq.Sequence, error) {
	var (
		p   parser.Parser
		err error
	)
	if format != "" {
		p, err = parser.ForFormat(format, opts)
	} else {
		p, err = parser.ForFile(path, opts)
	}
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	seq, err := p.Parse(f, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return seq, nil
}
