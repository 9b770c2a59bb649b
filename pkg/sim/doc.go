// Package sim synthesizes logic captures for protocol decoders.
//
// Each waveform type describes a bus configuration and a list of payloads;
// Build renders it sample by sample into a logic.Snapshot. The generators are
// deterministic, so tests can assert exact decoder output, and the otl CLI
// uses them to produce demo captures without hardware attached.
//
// Channel assignments default to roles in order (channel 0 is the first role)
// and may be remapped through the Channels field of each waveform.
package sim
