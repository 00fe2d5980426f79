// Command gpio-toggle flips a GPIO output at a fixed interval. It is used to
// check the wiring of the ice tower relay.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/ice-tower/internal/config"
	"github.com/sweeney/ice-tower/internal/gpio"
)

type toggleArgs struct {
	pin      int
	delay    time.Duration
	chip     string
	backend  gpio.Backend
	logLevel zerolog.Level
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	args, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "gpio-toggle: %v\n", err)
		os.Exit(2)
	}
	zerolog.SetGlobalLevel(args.logLevel)

	if err := run(args); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

// parseArgs parses `[flags] <pin> <delay>`, delay in seconds.
func parseArgs(args []string, stderr io.Writer) (toggleArgs, error) {
	fs := flag.NewFlagSet("gpio-toggle", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: gpio-toggle [flags] <pin> <delay>")
		fs.PrintDefaults()
	}
	chip := fs.String("chip", gpio.DefaultChip, "GPIO chip for the cdev backend")
	backend := fs.String("backend", string(gpio.BackendCdev), `GPIO backend ("cdev" or "rpio")`)
	logLevel := fs.String("log-level", "info", "log level")

	var positional []string
	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			return toggleArgs{}, err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		rest = fs.Args()[1:]
	}
	if len(positional) != 2 {
		fs.Usage()
		return toggleArgs{}, fmt.Errorf("expected <pin> <delay>, got %d arguments", len(positional))
	}

	pin, err := strconv.Atoi(positional[0])
	if err != nil {
		return toggleArgs{}, fmt.Errorf("pin %q is not a number", positional[0])
	}
	if err := gpio.ValidatePin(pin); err != nil {
		return toggleArgs{}, err
	}
	secs, err := strconv.ParseFloat(positional[1], 64)
	if err != nil || secs <= 0 {
		return toggleArgs{}, fmt.Errorf("delay %q must be a positive number of seconds", positional[1])
	}
	b, err := gpio.ParseBackend(*backend)
	if err != nil {
		return toggleArgs{}, err
	}
	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		return toggleArgs{}, fmt.Errorf("log level: %w", err)
	}

	return toggleArgs{
		pin:      pin,
		delay:    config.Seconds(secs),
		chip:     *chip,
		backend:  b,
		logLevel: level,
	}, nil
}

func run(args toggleArgs) error {
	hw, err := gpio.Open(args.backend, args.chip, args.pin)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	actuator := gpio.WithLogging(hw, log.Logger)
	defer func() {
		if err := actuator.Close(); err != nil {
			log.Error().Err(err).Msg("release gpio")
		}
	}()

	log.Info().Int("pin", args.pin).Dur("delay", args.delay).Str("backend", string(args.backend)).Msg("toggling")

	ticker := time.NewTicker(args.delay)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return runToggleLoop(actuator, ticker.C, sigCh)
}

// runToggleLoop toggles once immediately and then on every tick until a
// signal arrives, at which point the output is switched off.
func runToggleLoop(actuator gpio.Actuator, tick <-chan time.Time, sig <-chan os.Signal) error {
	if err := actuator.Toggle(); err != nil {
		return fmt.Errorf("toggle: %w", err)
	}
	for {
		select {
		case s := <-sig:
			log.Info().Str("signal", s.String()).Msg("shutting down")
			if err := actuator.Off(); err != nil {
				return fmt.Errorf("switch off on shutdown: %w", err)
			}
			return nil
		case <-tick:
			if err := actuator.Toggle(); err != nil {
				return fmt.Errorf("toggle: %w", err)
			}
		}
	}
}
