// Command ice-tower switches a CPU cooler on a GPIO pin based on recent CPU
// temperature readings.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/ice-tower/internal/config"
	"github.com/sweeney/ice-tower/internal/gpio"
	"github.com/sweeney/ice-tower/internal/logic"
	"github.com/sweeney/ice-tower/internal/mqtt"
	"github.com/sweeney/ice-tower/internal/sensor"
	"github.com/sweeney/ice-tower/internal/status"
	"github.com/sweeney/ice-tower/internal/web"
)

func main() {
	setupLogging(os.Stdout, zerolog.InfoLevel)

	args, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ice-tower: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(args.configPath, args.overrides)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("log_level", cfg.LogLevel).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

func setupLogging(w io.Writer, level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})
}

// cliArgs is the result of command-line parsing.
type cliArgs struct {
	configPath string
	overrides  map[string]any // koanf key -> value, only for flags that were set
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"d":           "delay",
	"delay":       "delay",
	"t":           "temperature",
	"temperature": "temperature",
	"w":           "window",
	"window":      "window",
	"p":           "percentage",
	"percentage":  "percentage",
	"sensor":      "sensor",
	"chip":        "gpio.chip",
	"backend":     "gpio.backend",
	"broker":      "mqtt.broker",
	"topic":       "mqtt.base_topic",
	"http":        "http",
	"heartbeat":   "heartbeat",
	"env-file":    "env_file",
	"log-level":   "log_level",
}

// parseArgs parses `[flags] <pin> [flags]`. Flags may appear on either side
// of the pin.
func parseArgs(args []string, stderr io.Writer) (cliArgs, error) {
	def := config.Defaults()
	fs := flag.NewFlagSet("ice-tower", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: ice-tower [flags] <pin>")
		fs.PrintDefaults()
	}

	var (
		delay       float64
		temperature float64
		window      int
		percentage  float64
		configPath  string
	)
	fs.Float64Var(&delay, "d", def.Delay.Seconds(), "seconds between readings")
	fs.Float64Var(&delay, "delay", def.Delay.Seconds(), "seconds between readings")
	fs.Float64Var(&temperature, "t", def.Temperature, "threshold temperature in °C")
	fs.Float64Var(&temperature, "temperature", def.Temperature, "threshold temperature in °C")
	fs.IntVar(&window, "w", def.Window, "number of readings to evaluate")
	fs.IntVar(&window, "window", def.Window, "number of readings to evaluate")
	fs.Float64Var(&percentage, "p", def.Percentage, "percent of readings that must cross the threshold")
	fs.Float64Var(&percentage, "percentage", def.Percentage, "percent of readings that must cross the threshold")

	fs.StringVar(&configPath, "config", "", "YAML config file")
	fs.String("sensor", def.Sensor, "temperature file (empty to auto-detect the CPU thermal zone)")
	fs.String("chip", def.GPIO.Chip, "GPIO chip for the cdev backend")
	fs.String("backend", def.GPIO.Backend, `GPIO backend ("cdev" or "rpio")`)
	fs.String("broker", def.MQTT.Broker, "MQTT broker address (empty to disable)")
	fs.String("topic", def.MQTT.BaseTopic, "MQTT base topic")
	fs.String("http", def.HTTP, "HTTP status address (empty to disable)")
	fs.Duration("heartbeat", def.Heartbeat, "heartbeat interval (0 to disable)")
	fs.String("env-file", def.EnvFile, "pi-helper network env file")
	fs.String("log-level", def.LogLevel, "log level")

	var positional []string
	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			return cliArgs{}, err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		rest = fs.Args()[1:]
	}

	if len(positional) != 1 {
		fs.Usage()
		return cliArgs{}, fmt.Errorf("expected exactly one pin argument, got %d", len(positional))
	}
	pin, err := strconv.Atoi(positional[0])
	if err != nil {
		return cliArgs{}, fmt.Errorf("pin %q is not a number", positional[0])
	}

	out := cliArgs{
		configPath: configPath,
		overrides:  map[string]any{"pin": pin},
	}
	fs.Visit(func(f *flag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		v := f.Value.(flag.Getter).Get()
		if key == "delay" {
			v = config.Seconds(delay)
		}
		out.overrides[key] = v
	})
	return out, nil
}

func run(cfg config.Config) error {
	backend, err := gpio.ParseBackend(cfg.GPIO.Backend)
	if err != nil {
		return err
	}
	hw, err := gpio.Open(backend, cfg.GPIO.Chip, cfg.Pin)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	actuator := gpio.WithLogging(hw, log.Logger)
	defer func() {
		if err := actuator.Close(); err != nil {
			log.Error().Err(err).Msg("release gpio")
		}
	}()

	thermal, err := sensor.Open(cfg.Sensor)
	if err != nil {
		return fmt.Errorf("init sensor: %w", err)
	}

	publisher, mqttStatus, err := openPublisher(cfg)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Tracker first so STARTUP carries a snapshot.
	tracker := status.NewTracker(time.Now(), status.Config{
		Pin:         cfg.Pin,
		DelayMs:     cfg.Delay.Milliseconds(),
		Threshold:   cfg.Temperature,
		WindowSize:  cfg.Window,
		Percentage:  cfg.Percentage,
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Sensor:      thermal.Path(),
		Backend:     string(backend),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP,
	})
	networkInfo := func() *status.NetworkInfo { return readNetworkInfo(cfg.EnvFile) }
	if net := networkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Warn().Err(err).Msg("publish startup event")
	}

	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", cfg.HTTP).Msg("http status server listening")
	}

	log.Info().
		Int("pin", cfg.Pin).
		Dur("delay", cfg.Delay).
		Float64("temperature", cfg.Temperature).
		Int("window", cfg.Window).
		Float64("percentage", cfg.Percentage).
		Str("sensor", thermal.Path()).
		Str("backend", string(backend)).
		Msg("started")

	ticker := time.NewTicker(cfg.Delay)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	params := logic.Params{
		Threshold:  cfg.Temperature,
		Percentage: cfg.Percentage,
		WindowSize: cfg.Window,
	}
	return runLoop(thermal, actuator, publisher, mqttStatus, tracker, params, cfg.Heartbeat, networkInfo, time.Now, ticker.C, sigCh)
}

// openPublisher returns a no-op publisher when no broker is configured.
// The returned ConnectionStatus is nil in that case.
func openPublisher(cfg config.Config) (mqtt.Publisher, mqtt.ConnectionStatus, error) {
	if cfg.MQTT.Broker == "" {
		log.Info().Msg("mqtt disabled")
		return mqtt.NopPublisher{}, nil, nil
	}
	p, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		Topics:   mqtt.TopicsFor(cfg.MQTT.BaseTopic),
	})
	if err != nil {
		return nil, nil, err
	}
	return p, p, nil
}

func runLoop(src sensor.Sensor, actuator gpio.Actuator, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, params logic.Params, heartbeat time.Duration, networkInfo func() *status.NetworkInfo, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	controller := logic.NewController(params, now())

	refresh := func() {
		temp, _ := controller.LastReading()
		tracker.Update(status.Reading{
			Tower:       logic.StateOf(actuator.State()),
			Temperature: temp,
			Window:      controller.Window(),
			Ready:       controller.IsReady(),
			Counts:      controller.EventCountsSnapshot(),
		})
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}

	for {
		select {
		case s := <-sig:
			log.Info().Str("signal", s.String()).Msg("shutting down")

			// Off exactly once, whatever the current state.
			offErr := actuator.Off()
			tracker.SetTower(logic.StateOff)

			reason := signalName(s)
			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			snap := tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "SHUTDOWN",
				Reason:     reason,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Warn().Err(err).Msg("publish shutdown event")
			}
			if offErr != nil {
				return fmt.Errorf("switch off on shutdown: %w", offErr)
			}
			return nil

		case <-tick:
			t := now()
			temp, err := src.Read()
			if err != nil {
				return fmt.Errorf("read sensor: %w", err)
			}
			log.Info().Float64("temperature", temp).Msg("CPU temperature")

			event := controller.Process(logic.Input{
				Temperature: temp,
				State:       logic.StateOf(actuator.State()),
				Time:        t,
			})
			if event != nil {
				if err := apply(actuator, event.Type); err != nil {
					return fmt.Errorf("switch actuator: %w", err)
				}
				log.Info().
					Str("event", string(event.Type)).
					Float64("temperature", event.Temperature).
					Float64("percentage", event.Percentage).
					Msg("transition")
				if err := publisher.Publish(*event); err != nil {
					log.Warn().Err(err).Msg("publish event")
				}
			}

			refresh()

			if hb := controller.CheckHeartbeat(t, heartbeat); hb != nil {
				log.Info().
					Dur("uptime", hb.Uptime).
					Int("on", hb.Counts.On).
					Int("off", hb.Counts.Off).
					Msg("heartbeat")
				if net := networkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				snap := tracker.Snapshot()
				hbEvent := mqtt.SystemEvent{
					Timestamp:  hb.Timestamp,
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Warn().Err(err).Msg("publish heartbeat")
				}
			}
		}
	}
}

func apply(actuator gpio.Actuator, et logic.EventType) error {
	if et.Target() == logic.StateOn {
		return actuator.On()
	}
	return actuator.Off()
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

// readNetworkInfo reads network state from the pi-helper env file, falling
// back to the process environment for keys the file does not set. It returns
// nil when no network status is known.
func readNetworkInfo(envFile string) *status.NetworkInfo {
	var fileVars map[string]string
	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		if err != nil {
			log.Debug().Err(err).Str("path", envFile).Msg("network env file not read")
		}
		fileVars = vars
	}
	get := func(key string) string {
		if v, ok := fileVars[key]; ok {
			return v
		}
		return os.Getenv(key)
	}

	s := get(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       get(envNetworkType),
		IP:         get(envNetworkIP),
		Status:     s,
		Gateway:    get(envNetworkGateway),
		WifiStatus: get(envNetworkWifiStatus),
		SSID:       get(envNetworkWifiSSID),
	}
}
