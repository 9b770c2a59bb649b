package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/dsl"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/timeline"
	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	decodeFlags  sessionFlags
	decodeStart  uint64
	decodeEnd    uint64
	decodeMin    float64
	decodeFormat string
	decodeOutput string
)

var decodeCmd = &cobra.Command{
	Use:   "decode [capture-file]",
	Short: "Decode a raw capture and print the state timelines",
	Long: `Decode a raw capture with one or more protocol decoders and print each
decoder's states. Decoders come from --config and from -d specs.

Examples:
  otl decode spi.bin -d "spi ssn:0 sclk:1 mosi:2 miso:3"
  otl decode uart.bin --rate 153600 -d "uart rx:0 baud=9600"
  otl decode --config session.yaml --min 200 --format json
  otl decode spi.bin -d "spi ssn:0 sclk:1 mosi:2" --format msgpack -o states.bin`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeFlags.register(decodeCmd)
	f := decodeCmd.Flags()
	f.Uint64Var(&decodeStart, "start", 0, "first sample of the query window")
	f.Uint64Var(&decodeEnd, "end", 0, "end of the query window (default end of capture)")
	f.Float64Var(&decodeMin, "min", 0, "merge same-kind states shorter than this many samples")
	f.StringVar(&decodeFormat, "format", "text", "output format (text, json, msgpack)")
	f.StringVarP(&decodeOutput, "output", "o", "", "write output to a file instead of stdout")
}

// decodedStates is the json/msgpack record of one decoder.
type decodedStates struct {
	Decoder  int                 `json:"decoder" msgpack:"decoder"`
	Protocol string              `json:"protocol" msgpack:"protocol"`
	Spec     string              `json:"spec" msgpack:"spec"`
	States   []timeline.Interval `json:"states" msgpack:"states"`
}

func runDecode(cmd *cobra.Command, args []string) error {
	switch decodeFormat {
	case "text", "json", "msgpack":
	default:
		return fmt.Errorf("unknown format %q (want text, json or msgpack)", decodeFormat)
	}
	cfg, err := decodeFlags.load(cmd, args)
	if err != nil {
		return err
	}
	if cfg.Capture.File == "" {
		return fmt.Errorf("no capture file given")
	}
	if len(cfg.Decoders) == 0 {
		return fmt.Errorf("no decoders configured; pass -d or --config")
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Decoding %s with %d decoder(s)\n", cfg.Capture.File, len(cfg.Decoders))
	}

	sess, err := buildSession(cfg)
	if err != nil {
		return err
	}
	snap, err := sess.Capture().Snapshot()
	if err != nil {
		return err
	}
	end := decodeEnd
	if end == 0 {
		end = snap.Samples()
	}

	entries := sess.Registry().Entries()
	results := make([]decodedStates, 0, len(entries))
	for _, e := range entries {
		d := e.Decoder
		states := d.SubsampledStates(decodeStart, end, decodeMin)
		if states == nil {
			states = []timeline.Interval{}
		}
		results = append(results, decodedStates{
			Decoder:  int(e.Handle),
			Protocol: d.Name(),
			Spec:     dsl.Format(d.Protocol(), d.Probes(), d.Options()),
			States:   states,
		})
	}

	var out io.Writer = cmd.OutOrStdout()
	if decodeOutput != "" {
		f, err := os.Create(decodeOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	switch decodeFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "msgpack":
		data, err := msgpack.Marshal(results)
		if err != nil {
			return fmt.Errorf("failed to encode msgpack: %w", err)
		}
		_, err = out.Write(data)
		return err
	}

	for i, r := range results {
		kinds := entries[i].Decoder.Kinds()
		fmt.Fprintf(out, "#%d %s (%d states)\n", r.Decoder, r.Spec, len(r.States))
		for _, iv := range r.States {
			fmt.Fprintf(out, "  [%10d, %10d)  %-14s 0x%02x 0x%02x\n", iv.Start, iv.End, kinds.Label(iv.Kind), iv.Primary, iv.Secondary)
		}
		fmt.Fprintln(out)
	}
	return nil
}
