package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/faiface/beep"
	flag "github.com/spf13/pflag"

	"github.com/jscyril/mp3cli/internal/audio"
	"github.com/jscyril/mp3cli/internal/config"
	"github.com/jscyril/mp3cli/internal/control"
	"github.com/jscyril/mp3cli/internal/library"
	"github.com/jscyril/mp3cli/internal/player"
	"github.com/jscyril/mp3cli/internal/playlist"
	"github.com/jscyril/mp3cli/internal/terminal"
	playerrors "github.com/jscyril/mp3cli/pkg/errors"
	"github.com/jscyril/mp3cli/pkg/events"
)

const usage = "Usage: player <music_folder>"

const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	flags := flag.NewFlagSet("player", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configFlag := flags.StringP("config", "c", "", "path to config file")
	logFlag := flags.String("log", "", "append playback events to this file")
	flags.Usage = func() {
		fmt.Fprintln(stderr, usage)
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		flags.Usage()
		return exitCode(fmt.Errorf("%w: %v", playerrors.ErrUsage, err))
	}
	if flags.NArg() < 1 {
		fmt.Fprintln(stderr, usage)
		return exitCode(playerrors.ErrUsage)
	}
	folder := flags.Arg(0)

	// Load configuration
	cfg, err := loadConfig(*configFlag)
	if err != nil {
		fmt.Fprintf(stderr, "Error: load config: %v\n", err)
		return exitFailure
	}
	if *logFlag != "" {
		cfg.LogFile = *logFlag
	}
	keymap, err := control.NewKeyMap(cfg.Keys)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional event log. closeBus flushes it; it runs on every exit path,
	// including quit, which never returns to here.
	bus := events.NewEventBus()
	var (
		drained sync.WaitGroup
		logFile *os.File
	)
	closeBus := func() {
		bus.Close()
		drained.Wait()
		if logFile != nil {
			logFile.Close()
		}
	}
	defer closeBus()

	scanner := library.NewScanner()
	sessionLog := log.New(io.Discard, "", 0)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(stderr, "Error: open log file: %v\n", err)
			return exitFailure
		}
		logFile = f

		logger := log.New(f, "mp3cli ", log.LstdFlags)
		sessionLog = logger
		scanner.OnError = func(e *playerrors.ScanError) { logger.Print(e) }

		ch := bus.SubscribeAll()
		drained.Add(1)
		go func() {
			defer drained.Done()
			events.Drain(ch, logger)
		}()
	}

	// Enumerate tracks
	found, err := scanner.Scan(ctx, folder)
	if err != nil {
		fmt.Fprintf(stderr, "Error: scan %s: %v\n", folder, err)
		return exitCode(err)
	}
	tracks, err := playlist.NewTrackList(found)
	if errors.Is(err, playerrors.ErrNoTracks) {
		fmt.Fprintln(stderr, "No MP3 files found in the specified folder.")
		return exitFailure
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	sessionLog.Printf("queued %d tracks from %s", tracks.Len(), folder)

	// Open the audio device
	sink, err := audio.NewSink(audio.SpeakerOutput{}, beep.SampleRate(cfg.Audio.SampleRate), cfg.Audio.Buffer)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer sink.Close()

	// Take over the terminal
	ctl := terminal.New(os.Stdin, os.Stdout, stderr)
	if err := ctl.Enter(terminal.Banner(cfg.Keys)); err != nil {
		ctl.Restore()
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer ctl.Restore()

	driver := player.NewDriver(tracks, sink, ctl, player.Options{
		Bus:    bus,
		Keys:   keymap,
		Logger: log.New(ctl.ErrWriter(), "", 0),
		Exit: func(code int) {
			closeBus()
			os.Exit(code)
		},
		ListenerPoll: cfg.Playback.ListenerPoll,
		WaitInterval: cfg.Playback.WaitInterval,
	})

	err = driver.Run(ctx)
	if err != nil && ctx.Err() == nil {
		fmt.Fprintf(ctl.ErrWriter(), "Error: %v\n", err)
	}
	return exitCode(err)
}

// loadConfig reads the default configuration sources, with path replacing
// the config file when set.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	sources := config.DefaultSources()
	sources.ConfigFile = path
	return config.LoadFrom(sources)
}

// exitCode maps the error that ended run to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, playerrors.ErrUsage):
		return exitUsage
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return exitInterrupted
	default:
		return exitFailure
	}
}
