package audiodev

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"
)

// Sample rates tried in order when configuring an input device. The
// device's default rate is the fallback.
const (
	PreferredSampleRate = 96000
	BackupSampleRate    = 48000
)

// FramesPerBuffer is the callback buffer size requested from PortAudio.
const FramesPerBuffer = 256

// MaxChannels caps the recorded channel count; inputs with more
// channels are opened on their first two.
const MaxChannels = 2

// HostInfo describes one PortAudio host API for listings.
type HostInfo struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Devices int    `json:"devices"`
}

// DeviceInfo describes one audio device for listings.
type DeviceInfo struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Host        string  `json:"host"`
	Inputs      int     `json:"inputs"`
	Outputs     int     `json:"outputs"`
	DefaultRate float64 `json:"defaultRate"`
}

// Hosts lists the available host APIs. PortAudio must be initialized.
func Hosts() ([]HostInfo, error) {
	apis, err := portaudio.HostApis()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate host APIs: %w", err)
	}
	out := make([]HostInfo, 0, len(apis))
	for i, api := range apis {
		out = append(out, HostInfo{
			ID:      i,
			Name:    api.Name,
			Devices: len(api.Devices),
		})
	}
	return out, nil
}

// Devices lists every audio device. PortAudio must be initialized.
func Devices() ([]DeviceInfo, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate audio devices: %w", err)
	}
	out := make([]DeviceInfo, 0, len(devs))
	for i, dev := range devs {
		info := DeviceInfo{
			ID:          i,
			Name:        dev.Name,
			Inputs:      dev.MaxInputChannels,
			Outputs:     dev.MaxOutputChannels,
			DefaultRate: dev.DefaultSampleRate,
		}
		if dev.HostApi != nil {
			info.Host = dev.HostApi.Name
		}
		out = append(out, info)
	}
	return out, nil
}

// FindInput resolves the matcher against the device list, or returns
// the default input device when the matcher is nil. Devices without
// input channels are skipped.
func FindInput(m *Matcher) (*portaudio.DeviceInfo, error) {
	if m == nil {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("no default input device: %w", err)
		}
		return dev, nil
	}

	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate audio devices: %w", err)
	}
	idx, ok := m.Pick(len(devs), func(i int) string { return devs[i].Name })
	if !ok {
		return nil, &LookupError{What: "audio device", Query: m.String()}
	}
	dev := devs[idx]
	if dev.MaxInputChannels == 0 {
		return nil, fmt.Errorf("device %q has no input channels", dev.Name)
	}
	return dev, nil
}

// InputParameters builds low-latency stream parameters for the device,
// preferring 96 kHz, then 48 kHz, then the device default. The channel
// count is the device's input count capped at two.
func InputParameters(dev *portaudio.DeviceInfo, log *zap.Logger) portaudio.StreamParameters {
	p := portaudio.LowLatencyParameters(dev, nil)
	p.Input.Channels = dev.MaxInputChannels
	if p.Input.Channels > MaxChannels {
		p.Input.Channels = MaxChannels
	}
	p.FramesPerBuffer = FramesPerBuffer

	// the probe callback only tells PortAudio the sample format to
	// check against; it is never invoked
	probe := func([]int16) {}
	for _, rate := range []float64{PreferredSampleRate, BackupSampleRate} {
		p.SampleRate = rate
		if err := portaudio.IsFormatSupported(p, probe); err == nil {
			return p
		}
		log.Warn("device does not support sample rate",
			zap.String("device", dev.Name),
			zap.Float64("sampleRate", rate))
	}

	p.SampleRate = dev.DefaultSampleRate
	return p
}
