// Package main is the entry point for the multisampler CLI
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/james-see/multisampler/pkg/api"
	"github.com/james-see/multisampler/pkg/audiodev"
	"github.com/james-see/multisampler/pkg/capture"
	"github.com/james-see/multisampler/pkg/export"
	"github.com/james-see/multisampler/pkg/midinote"
	"github.com/james-see/multisampler/pkg/sequencer"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	inputDevice  string
	midiPort     string
	midiChannel  uint8
	logLevel     string
	sampleFormat string

	outputFormat   string
	outputDir      string
	filePrefix     string
	dryRun         bool
	startNote      string
	endNote        string
	noteStep       uint8
	velocityLayers uint8
	roundRobins    uint8
	trimStart      bool
	sustainSecs    float64
	releaseSecs    float64

	testNote string

	serverPort int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "multisampler",
	Short: "Sample a MIDI instrument into a multi-sample library",
	Long: `multisampler drives an attached MIDI instrument through a range of
notes while recording its audio output, splitting the recording into
one WAV file per note.

Velocity layers and round-robin variations are swept automatically,
and the results can be packaged as a zip, an SFZ instrument or a
Bitwig .multisample archive.

Examples:
  multisampler show audio-devices
  multisampler test --note C3
  multisampler run -i scarlett --start A0 --end C8 -o samples/
  multisampler run --velocity-layers 4 --round-robins 2 -f bitwig
  multisampler serve --port 8080`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the auto-sampling routine",
	Long:  `Plays every note of the configured sweep on the MIDI output while recording the audio input, writing one WAV file per note.`,
	RunE:  runRun,
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Play a single note to check routing configuration",
	RunE:  runTest,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display information about the system",
}

var showAudioHostsCmd = &cobra.Command{
	Use:   "audio-hosts",
	Short: "List available audio hosts (drivers)",
	RunE:  runShowAudioHosts,
}

var showAudioDevicesCmd = &cobra.Command{
	Use:   "audio-devices",
	Short: "List available audio devices",
	RunE:  runShowAudioDevices,
}

var showMIDIPortsCmd = &cobra.Command{
	Use:   "midi-ports",
	Short: "List available MIDI ports",
	RunE:  runShowMIDIPorts,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&inputDevice, "input-device", "i", "", "Audio input to record from (index or name)")
	rootCmd.PersistentFlags().StringVar(&midiPort, "midi-port", "0", "MIDI port to output to (index or name)")
	rootCmd.PersistentFlags().Uint8VarP(&midiChannel, "midi-channel", "c", 1, "MIDI channel to send on (1-16)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Minimum log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&sampleFormat, "sample-format", "int16", "Sample format to capture (int16, int32, float32)")

	// run command
	runCmd.Flags().StringVarP(&outputFormat, "format", "f", "raw", "Multi-sample package format to generate (raw, zip, sfz, bitwig)")
	runCmd.Flags().StringVarP(&outputDir, "output-directory", "o", "", "Directory to save recordings in (default: current)")
	runCmd.Flags().StringVarP(&filePrefix, "file-prefix", "p", "", "Prefix for file names")
	runCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Print the note schedule and exit")
	runCmd.Flags().StringVar(&startNote, "start", "21", "Lowest note to sample (MIDI note name or number)")
	runCmd.Flags().StringVar(&endNote, "end", "108", "Highest note to sample (MIDI note name or number)")
	runCmd.Flags().Uint8Var(&noteStep, "step", 1, "Step between notes, in semitones")
	runCmd.Flags().Uint8Var(&velocityLayers, "velocity-layers", 1, "Number of velocity layers to sample")
	runCmd.Flags().Uint8Var(&roundRobins, "round-robins", 1, "Number of round-robin samples of each velocity layer")
	runCmd.Flags().BoolVar(&trimStart, "trim-start", false, "Discard silence at the beginning of each sample")
	runCmd.Flags().Float64Var(&sustainSecs, "sustain", 1.0, "Length of each note before NoteOff, in seconds")
	runCmd.Flags().Float64Var(&releaseSecs, "release", 0.5, "Time to wait after NoteOff before the next note, in seconds")

	// test command
	testCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Print the note schedule and exit")
	testCmd.Flags().StringVar(&testNote, "note", "48", "Note to test (MIDI note name or number)")
	testCmd.Flags().Float64Var(&sustainSecs, "sustain", 1.0, "Length of the note before NoteOff, in seconds")
	testCmd.Flags().Float64Var(&releaseSecs, "release", 0.5, "Time to wait after NoteOff, in seconds")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	// Add commands
	showCmd.AddCommand(showAudioHostsCmd)
	showCmd.AddCommand(showAudioDevicesCmd)
	showCmd.AddCommand(showMIDIPortsCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(serveCmd)
}

func buildLogger() (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func inputMatcher() *audiodev.Matcher {
	if inputDevice == "" {
		return nil
	}
	m := audiodev.ParseMatcher(inputDevice)
	return &m
}

// captureConfig is everything runRun and runTest have in common once
// their flags are folded in.
type captureConfig struct {
	seq  sequencer.Config
	save bool
	trim bool
}

func runRun(cmd *cobra.Command, args []string) error {
	start, err := midinote.ParsePitch(startNote)
	if err != nil {
		return fmt.Errorf("invalid start note: %w", err)
	}
	end, err := midinote.ParsePitch(endNote)
	if err != nil {
		return fmt.Errorf("invalid end note: %w", err)
	}

	return runCapture(captureConfig{
		seq: sequencer.Config{
			Start:          uint8(start),
			End:            uint8(end),
			Step:           noteStep,
			VelocityLevels: velocityLayers,
			RoundRobins:    roundRobins,
			Length:         time.Duration(sustainSecs * float64(time.Second)),
			Gap:            time.Duration(releaseSecs * float64(time.Second)),
		},
		save: true,
		trim: trimStart,
	})
}

func runTest(cmd *cobra.Command, args []string) error {
	note, err := midinote.ParsePitch(testNote)
	if err != nil {
		return fmt.Errorf("invalid test note: %w", err)
	}

	return runCapture(captureConfig{
		seq: sequencer.Config{
			Start:          uint8(note),
			End:            uint8(note),
			Step:           1,
			VelocityLevels: 1,
			RoundRobins:    1,
			Length:         time.Duration(sustainSecs * float64(time.Second)),
			Gap:            time.Duration(releaseSecs * float64(time.Second)),
		},
		save: false,
		trim: false,
	})
}

func runCapture(cc captureConfig) error {
	log, err := buildLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if midiChannel < 1 || midiChannel > 16 {
		return fmt.Errorf("MIDI channel %d is out of range 1-16", midiChannel)
	}
	channel, err := midinote.NewChannel(midiChannel - 1)
	if err != nil {
		return err
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize audio: %w", err)
	}
	defer func() { _ = portaudio.Terminate() }()

	dev, err := audiodev.FindInput(inputMatcher())
	if err != nil {
		return err
	}
	log.Info("using audio input device", zap.String("device", dev.Name))

	params := audiodev.InputParameters(dev, log)
	sampleRate := uint32(params.SampleRate)
	log.Info("input stream configured",
		zap.Uint32("sampleRate", sampleRate),
		zap.Int("channels", params.Input.Channels),
		zap.Int("framesPerBuffer", params.FramesPerBuffer))

	seq, err := sequencer.New(cc.seq, sampleRate)
	if err != nil {
		return err
	}

	if dryRun {
		printSchedule(seq, channel)
		return nil
	}

	defer midi.CloseDriver()
	send, closePort, err := openMIDIPort(log)
	if err != nil {
		return err
	}
	defer closePort()

	opts := capture.Options{
		Sequencer:    seq,
		Channel:      channel,
		Send:         send,
		Channels:     params.Input.Channels,
		InitialPitch: cc.seq.Start,
		TrimStart:    cc.trim,
		Save:         cc.save,
		Log:          log,
	}
	if cc.save {
		dir := outputDir
		if dir == "" {
			if dir, err = os.Getwd(); err != nil {
				return err
			}
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		opts.Open = capture.NewWavOpener(capture.WavSpec{
			SampleRate: int(sampleRate),
			Channels:   params.Input.Channels,
		})
		opts.Namer = &capture.Namer{
			Dir:           dir,
			Prefix:        filePrefix,
			HasVelocity:   velocityLayers > 1,
			HasRoundRobin: roundRobins > 1,
		}
	}
	pipe := capture.NewPipeline(opts)

	stream, err := openStream(params, pipe.Processor)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}

	pipe.Start()
	log.Debug("capturing input")
	if err := stream.Start(); err != nil {
		stream.Close()
		pipe.Abandon()
		pipe.Wait()
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	files, runErr := pipe.Wait()
	if err := stream.Stop(); err != nil {
		log.Error("failed to stop input stream", zap.Error(err))
	}
	stream.Close()
	if runErr != nil {
		return runErr
	}

	reportRun(pipe, sampleRate, cc.save, log)

	if cc.save {
		return packageFiles(files, log)
	}
	return nil
}

// openStream opens the input stream with a callback matching the
// requested sample format.
func openStream(params portaudio.StreamParameters, proc *capture.Processor) (*portaudio.Stream, error) {
	switch sampleFormat {
	case "int16":
		return portaudio.OpenStream(params, func(in []int16) { proc.ProcessInt16(in) })
	case "int32":
		return portaudio.OpenStream(params, func(in []int32) { proc.ProcessInt32(in) })
	case "float32":
		return portaudio.OpenStream(params, func(in []float32) { proc.ProcessFloat32(in) })
	default:
		return nil, fmt.Errorf("unsupported sample format %q", sampleFormat)
	}
}

// openMIDIPort resolves the port matcher, opens the port and returns a
// send function together with a cleanup closure.
func openMIDIPort(log *zap.Logger) (capture.SendFunc, func(), error) {
	ports := midi.GetOutPorts()
	m := audiodev.ParseMatcher(midiPort)
	idx, ok := m.Pick(len(ports), func(i int) string { return ports[i].String() })
	if !ok {
		return nil, nil, &audiodev.LookupError{What: "MIDI port", Query: m.String()}
	}
	port := ports[idx]
	sender, err := midi.SendTo(port)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MIDI port %q: %w", port.String(), err)
	}
	log.Info("connected to MIDI output port", zap.String("port", port.String()))

	return func(msg []byte) error { return sender(midi.Message(msg)) },
		func() { _ = port.Close() },
		nil
}

func printSchedule(seq *sequencer.Sequencer, channel midinote.Channel) {
	fmt.Fprintln(os.Stderr, "Sample Offset       \tEvent\tPitch\tVelo\tMIDI")
	fmt.Fprintln(os.Stderr, "--------------------\t-----\t-----\t----\t----")
	for position, note := range seq.Events() {
		msg := note.Message(channel)
		fmt.Printf("%20d\t%s\t%5s\t%4d\t[%02X %02X %02X]\n",
			position, note.State, midinote.Pitch(note.Pitch), note.Velocity,
			msg[0], msg[1], msg[2])
	}
}

func reportRun(pipe *capture.Pipeline, sampleRate uint32, saved bool, log *zap.Logger) {
	if drops := pipe.Processor.AudioDrops(); drops > 0 {
		log.Warn("audio queue overflowed, recordings may have gaps", zap.Uint64("dropped", drops))
	}
	if drops := pipe.Processor.NoteDrops(); drops > 0 {
		log.Warn("note queue overflowed, some notes were not played", zap.Uint64("dropped", drops))
	}

	latency := pipe.State().Latency()
	latencyText := fmt.Sprintf("Approximate latency: %v (%d samples)",
		time.Duration(latency)*time.Second/time.Duration(sampleRate), latency)

	if saved {
		log.Info("recordings complete")
		if latency != 0 {
			log.Info(latencyText)
		}
	} else {
		log.Info("test complete")
		if latency != 0 {
			fmt.Println(latencyText)
		}
	}
}

// packageFiles applies the selected output format to the recorded
// files.
func packageFiles(files []capture.RecordedFile, log *zap.Logger) error {
	if outputFormat == "raw" || len(files) == 0 {
		return nil
	}

	name := filePrefix
	if name == "" {
		name = "multisample"
	}
	dir := outputDir
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			return err
		}
	}

	var (
		path string
		err  error
	)
	switch outputFormat {
	case "zip":
		paths := make([]string, len(files))
		for i, f := range files {
			paths[i] = f.Path
		}
		path, err = export.Archive(dir, name, paths)
	case "sfz":
		path, err = export.SFZ(dir, name, export.BuildZones(files))
	case "bitwig":
		path, err = export.Bitwig(dir, name, export.BuildZones(files))
	default:
		return fmt.Errorf("unsupported output format %q", outputFormat)
	}
	if err != nil {
		return err
	}
	log.Info("wrote multi-sample package", zap.String("path", path))
	return nil
}

func runShowAudioHosts(cmd *cobra.Command, args []string) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize audio: %w", err)
	}
	defer func() { _ = portaudio.Terminate() }()

	hosts, err := audiodev.Hosts()
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "ID\tDevices\tName")
	for _, h := range hosts {
		fmt.Printf("%d\t%d\t%s\n", h.ID, h.Devices, h.Name)
	}
	return nil
}

func runShowAudioDevices(cmd *cobra.Command, args []string) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize audio: %w", err)
	}
	defer func() { _ = portaudio.Terminate() }()

	devices, err := audiodev.Devices()
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "ID\tIn\tOut\tFs\tName")
	for _, d := range devices {
		fmt.Printf("%d\t%d\t%d\t%6.0f\t%s\n", d.ID, d.Inputs, d.Outputs, d.DefaultRate, d.Name)
	}
	return nil
}

func runShowMIDIPorts(cmd *cobra.Command, args []string) error {
	defer midi.CloseDriver()
	fmt.Fprintln(os.Stderr, "ID\tName")
	for i, port := range midi.GetOutPorts() {
		fmt.Printf("%d\t%s\n", i, port.String())
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize audio: %w", err)
	}
	defer func() { _ = portaudio.Terminate() }()
	defer midi.CloseDriver()

	fmt.Printf("Starting API server on port %d...\n", serverPort)
	return api.StartServer(serverPort)
}
