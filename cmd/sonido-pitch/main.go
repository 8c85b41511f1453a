// Command sonido-pitch is a console tuner: it listens to an input device,
// estimates the pitch of every frame and prints the closest note.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
	"github.com/RyanBlaney/sonido-pitch/audio"
	"github.com/RyanBlaney/sonido-pitch/audio/malgo"
	"github.com/RyanBlaney/sonido-pitch/audio/portaudio"
	"github.com/RyanBlaney/sonido-pitch/audio/synth"
	"github.com/RyanBlaney/sonido-pitch/capture"
	"github.com/RyanBlaney/sonido-pitch/config"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/transcode"
	"github.com/RyanBlaney/sonido-pitch/tuner"
)

// stringList collects a repeatable flag
type stringList []string

func (s *stringList) String() string { return fmt.Sprint(*s) }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	backendName := flag.String("backend", "", "audio backend: portaudio, malgo, file or synth")
	listDevices := flag.Bool("list-devices", false, "print the input devices and exit")
	listAlgorithms := flag.Bool("list-algorithms", false, "print the pitch algorithms and exit")
	deviceIndex := flag.Int("device", -1, "input device index (prompted when negative)")
	algorithmIndex := flag.Int("algorithm", -1, "pitch algorithm index (prompted when negative)")
	var files stringList
	flag.Var(&files, "file", "decode an audio file as an input device (repeatable)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sonido-pitch: %v\n", err)
		return 1
	}
	if len(files) > 0 {
		cfg.Transcode.Files = append(cfg.Transcode.Files, files...)
		cfg.Backend = config.BackendFile
	}
	if *backendName != "" {
		cfg.Backend = config.BackendName(*backendName)
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "sonido-pitch: %v\n", err)
		return 1
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.NewDefaultLogger()
	logger.SetLevel(level)
	logging.SetGlobalLogger(logger)

	if *listAlgorithms {
		printAlgorithms(os.Stdout)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := newBackend(cfg, logger)
	if err != nil {
		logger.Error(err, "Failed to initialize audio backend", logging.Fields{"backend": string(cfg.Backend)})
		return 1
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("Audio backend close error", logging.Fields{"error": err.Error()})
		}
	}()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()
	metrics, err := capture.NewMetrics(provider)
	if err != nil {
		logger.Error(err, "Failed to create metrics")
		return 1
	}

	tn := tuner.New(backend, newConsoleSink(os.Stdout),
		tuner.WithCaptureDefaults(cfg.CaptureDefaults()),
		tuner.WithLogger(logger),
		tuner.WithPipelineOptions(
			capture.WithGate(cfg.Gate),
			capture.WithClassifier(cfg.NewClassifier()),
			capture.WithReadChunk(cfg.Capture.ReadChunk),
			capture.WithMetrics(metrics),
		),
	)

	devices, err := tn.ListDevices(ctx)
	if err != nil {
		logger.Error(err, "Failed to list input devices")
		return 1
	}
	if *listDevices {
		printDevices(os.Stdout, devices)
		return 0
	}

	in := bufio.NewScanner(os.Stdin)
	if *deviceIndex < 0 {
		printDevices(os.Stdout, devices)
		if *deviceIndex, err = promptIndex(in, os.Stdout, "Select a device by index: "); err != nil {
			logger.Error(err, "No device selected")
			return 1
		}
	}
	if *algorithmIndex < 0 {
		printAlgorithms(os.Stdout)
		if *algorithmIndex, err = promptIndex(in, os.Stdout, "Select a pitch estimation algorithm by index: "); err != nil {
			logger.Error(err, "No algorithm selected")
			return 1
		}
	}

	if err := tn.Start(ctx, *deviceIndex, *algorithmIndex); err != nil {
		logger.Error(err, "Failed to start capture")
		return 1
	}
	logger.Info("Started listening", logging.Fields{
		"device":    devices[*deviceIndex].Name,
		"algorithm": tonal.Algorithms()[*algorithmIndex].String(),
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		err := tn.Wait(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		return tn.Stop()
	})

	err = g.Wait()
	logMetrics(context.Background(), reader, logger)
	if err != nil {
		logger.Error(err, "Capture ended with error")
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// newBackend opens the audio subsystem selected by cfg
func newBackend(cfg *config.Config, logger logging.Logger) (audio.Backend, error) {
	switch cfg.Backend {
	case config.BackendPortAudio:
		return portaudio.New(cfg.PortAudio.FramesPerBuffer)
	case config.BackendMalgo:
		return malgo.New(cfg.Malgo.QueueDepth, logger)
	case config.BackendFile:
		if err := transcode.CheckAvailability(cfg.Transcode.Config); err != nil {
			return nil, err
		}
		return transcode.NewBackend(cfg.Transcode.Config, cfg.Transcode.Files...), nil
	case config.BackendSynth:
		var opts []synth.Option
		if cfg.Synth.Realtime {
			opts = append(opts, synth.WithRealtime())
		}
		return synth.New(cfg.Synth.Tones, opts...), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func printDevices(w io.Writer, devices []audio.Device) {
	fmt.Fprintln(w, "Available devices:")
	for i, d := range devices {
		fmt.Fprintf(w, "%d: %s\n", i, d.Name)
	}
}

func printAlgorithms(w io.Writer) {
	fmt.Fprintln(w, "Available pitch estimation algorithms:")
	for i, alg := range tonal.Algorithms() {
		fmt.Fprintf(w, "%d: %s (%s)\n", i, alg, alg.Description())
	}
}
