package cmd

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/decoder"
	"github.com/spf13/cobra"
)

var protocolsCmd = &cobra.Command{
	Use:   "protocols",
	Short: "List supported protocols with their roles, options and states",
	Args:  cobra.NoArgs,
	RunE:  runProtocols,
}

func init() {
	rootCmd.AddCommand(protocolsCmd)
}

func runProtocols(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, p := range decoder.Protocols() {
		fmt.Fprintf(out, "%s (id %d)\n", p, int(p))

		fmt.Fprintf(out, "  Roles:\n")
		for _, r := range p.Roles() {
			req := "optional"
			if r.Required {
				req = "required"
			}
			fmt.Fprintf(out, "    %-6s %-8s %s\n", r.Name, req, r.Description)
		}

		if defs := p.OptionDefs(); len(defs) > 0 {
			fmt.Fprintf(out, "  Options:\n")
			for _, d := range defs {
				fmt.Fprintf(out, "    %-10s %-22s default %-8v %s\n", d.Name, optionRange(d), d.Default, d.Description)
			}
		}

		labels := make([]string, 0, len(p.Kinds()))
		for _, k := range p.Kinds() {
			labels = append(labels, k.Label)
		}
		fmt.Fprintf(out, "  States: %s\n\n", strings.Join(labels, ", "))
	}
	return nil
}

func optionRange(d decoder.OptionDef) string {
	switch d.Type {
	case decoder.OptionInt:
		return fmt.Sprintf("int %d..%d", d.Min, d.Max)
	case decoder.OptionChoice:
		return strings.Join(d.Choices, "|")
	}
	return d.Type.String()
}
