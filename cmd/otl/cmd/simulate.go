package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/decoder"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/dsl"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/logic"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/sim"
	"github.com/spf13/cobra"
)

var (
	simOutput string
	simWords  []string
	simMISO   []string
	simBits   int
	simCPOL   bool
	simCPHA   bool
	simLSB    bool
	simRate   uint64
	simAddr   string
	simRead   bool
	simBaud   int
	simParity string
	simText   string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <spi|i2c|uart>",
	Short: "Write a synthetic raw capture",
	Long: `Render a synthetic bus waveform and write it as a raw capture, one byte
per sample with channel n at bit n. Channels follow the protocol's role
order (SPI: SSN, SCLK, MOSI, MISO; I2C: SCL, SDA; UART: RX).

Examples:
  otl simulate spi -o spi.bin --words 0xa5,0x3c --miso 0x00,0xff
  otl simulate spi -o spi16.bin --bits 16 --cpol --cpha --words 0xbeef
  otl simulate i2c -o i2c.bin --addr 0x50 --words 0x00,0x10
  otl simulate uart -o uart.bin --baud 9600 --text "hello"`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	f := simulateCmd.Flags()
	f.StringVarP(&simOutput, "output", "o", "", "output capture file (required)")
	f.StringSliceVar(&simWords, "words", nil, "payload words: SPI MOSI words, I2C data bytes or UART frames")
	f.StringSliceVar(&simMISO, "miso", nil, "SPI MISO words")
	f.IntVar(&simBits, "bits", 8, "SPI bits per word or UART data bits")
	f.BoolVar(&simCPOL, "cpol", false, "SPI clock idles high")
	f.BoolVar(&simCPHA, "cpha", false, "SPI sample on the trailing edge")
	f.BoolVar(&simLSB, "lsb", false, "least significant bit first")
	f.Uint64Var(&simRate, "rate", 0, "sample rate in Hz (default 1 MHz, UART 16x baud)")
	f.StringVar(&simAddr, "addr", "0x50", "I2C 7-bit address")
	f.BoolVar(&simRead, "read", false, "I2C read transfer")
	f.IntVar(&simBaud, "baud", 9600, "UART baud rate")
	f.StringVar(&simParity, "parity", "none", "UART parity (none, odd, even)")
	f.StringVar(&simText, "text", "", "UART payload text, appended to --words")
	_ = simulateCmd.MarkFlagRequired("output")
}

func parseWords(list []string) ([]uint32, error) {
	out := make([]uint32, 0, len(list))
	for _, s := range list {
		v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid word %q: %w", s, err)
		}
		out = append(out, uint32(v))
	}
	return out, nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	words, err := parseWords(simWords)
	if err != nil {
		return err
	}

	var (
		snap *logic.Snapshot
		spec string
	)
	switch strings.ToLower(args[0]) {
	case "spi":
		miso, err := parseWords(simMISO)
		if err != nil {
			return err
		}
		ws := make([]sim.Word, len(words))
		for i, w := range words {
			ws[i].Out = w
			if i < len(miso) {
				ws[i].In = miso[i]
			}
		}
		snap, err = sim.SPI{CPOL: simCPOL, CPHA: simCPHA, Bits: simBits, LSBFirst: simLSB, Words: ws, SampleRate: simRate}.Build()
		if err != nil {
			return err
		}
		order := "msb"
		if simLSB {
			order = "lsb"
		}
		spec = dsl.Format(decoder.ProtocolSPI, decoder.Channels{0, 1, 2, 3},
			decoder.Options{"cpol": simCPOL, "cpha": simCPHA, "bits": simBits, "order": order})

	case "i2c":
		addr, err := strconv.ParseUint(simAddr, 0, 7)
		if err != nil {
			return fmt.Errorf("invalid address %q: %w", simAddr, err)
		}
		data := make([]byte, len(words))
		for i, w := range words {
			data[i] = byte(w)
		}
		t := sim.I2CTransfer{Addr: uint8(addr), Read: simRead, Data: data, Nack: simRead}
		snap, err = sim.I2C{Transfers: []sim.I2CTransfer{t}, SampleRate: simRate}.Build()
		if err != nil {
			return err
		}
		spec = dsl.Format(decoder.ProtocolI2C, decoder.Channels{0, 1}, nil)

	case "uart":
		if simBits < 5 || simBits > 9 {
			return fmt.Errorf("uart bits %d out of range 5..9", simBits)
		}
		for _, b := range []byte(simText) {
			words = append(words, uint32(b))
		}
		snap, err = sim.UART{Baud: simBaud, SampleRate: simRate, Bits: simBits, Parity: simParity, Frames: words}.Build()
		if err != nil {
			return err
		}
		spec = dsl.Format(decoder.ProtocolUART, decoder.Channels{0},
			decoder.Options{"baud": simBaud, "bits": simBits, "parity": simParity})

	default:
		return fmt.Errorf("unknown waveform %q (want spi, i2c or uart)", args[0])
	}

	f, err := os.Create(simOutput)
	if err != nil {
		return err
	}
	if _, err := snap.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", simOutput, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	logger.Info().Str("file", simOutput).Uint64("samples", snap.Samples()).Msg("capture written")
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %d samples (%d byte units, %d Hz) to %s\n", snap.Samples(), snap.UnitSize(), snap.SampleRate(), simOutput)
	fmt.Fprintf(out, "Decode with: otl decode %s --rate %d -d %q\n", simOutput, snap.SampleRate(), spec)
	return nil
}
