package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceLogic/internal/config"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/dsl"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/session"
	"github.com/spf13/cobra"
)

// sessionFlags are shared by commands that assemble a session from a config
// file, a capture path and decoder specs.
type sessionFlags struct {
	configPath string
	unitSize   int
	rate       uint64
	probes     []int
	decoders   []string
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "", "session config file (.yaml or .toml)")
	fl.IntVar(&f.unitSize, "unit-size", 1, "bytes per sample in the capture file")
	fl.Uint64Var(&f.rate, "rate", 0, "capture sample rate in Hz")
	fl.IntSliceVar(&f.probes, "probes", nil, "enabled channels (default all)")
	fl.StringArrayVarP(&f.decoders, "decoder", "d", nil, `decoder spec, e.g. "spi ssn:0 sclk:1 mosi:2 bits=8" (repeatable)`)
}

// load builds the effective configuration: file first, then flags.
func (f *sessionFlags) load(cmd *cobra.Command, args []string) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if len(args) > 0 {
		cfg.Capture.File = args[0]
	}
	fl := cmd.Flags()
	if fl.Changed("unit-size") || f.configPath == "" {
		cfg.Capture.UnitSize = f.unitSize
	}
	if fl.Changed("rate") {
		cfg.Capture.SampleRate = f.rate
	}
	if fl.Changed("probes") {
		cfg.Capture.Probes = f.probes
	}
	for _, text := range f.decoders {
		specs, err := dsl.Parse(text)
		if err != nil {
			return config.Config{}, fmt.Errorf("decoder %q: %w", text, err)
		}
		for _, s := range specs {
			cfg.Decoders = append(cfg.Decoders, config.DecoderConfig{Spec: s.String()})
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// buildSession registers every configured decoder and, when a capture file
// is set, loads and decodes it.
func buildSession(cfg config.Config) (*session.Session, error) {
	sess := session.New(logger)
	if _, err := config.AddDecoders(sess.Registry(), cfg.Decoders); err != nil {
		return nil, err
	}
	if cfg.Capture.File == "" {
		return sess, nil
	}
	snap, err := cfg.Capture.LoadCapture()
	if err != nil {
		return nil, err
	}
	if err := sess.Load(snap); err != nil {
		return nil, err
	}
	return sess, nil
}
