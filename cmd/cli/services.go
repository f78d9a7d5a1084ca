package cli

import (
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/anstrom/scanparser/internal/errors"
	"github.com/anstrom/scanparser/internal/services"
)

const defaultProtocol = "tcp"

func newServicesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "services [PORT[/PROTO]...]",
		Short: "Look up well-known service names",
		Long: `Resolve ports against the configured reference table. Without
arguments the whole table is listed. The protocol defaults to tcp.`,
		Example: `  scanparser services 22 53/udp 8443/tcp
  scanparser services --config scanparser.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadServices(a.cfg)
			if err != nil {
				return err
			}
			return printServices(cmd.OutOrStdout(), table, args)
		},
	}
}

func printServices(out io.Writer, table *services.Table, args []string) error {
	var rows [][]string
	if len(args) == 0 {
		for _, e := range table.Entries() {
			rows = append(rows, []string{strconv.Itoa(int(e.Port)), e.Protocol, e.Name})
		}
	}
	for _, arg := range args {
		port, proto, err := parsePortSpec(arg)
		if err != nil {
			return err
		}
		rows = append(rows, []string{strconv.Itoa(int(port)), proto, table.Lookup(port, proto)})
	}

	tw := tablewriter.NewWriter(out)
	tw.Header("Port", "Protocol", "Service")
	for _, row := range rows {
		if err := tw.Append(row); err != nil {
			return err
		}
	}
	return tw.Render()
}

// parsePortSpec parses "22", "22/tcp" or "53/udp".
func parsePortSpec(arg string) (uint16, string, error) {
	num, proto, found := strings.Cut(strings.TrimSpace(arg), "/")
	if !found || proto == "" {
		proto = defaultProtocol
	}
	proto = strings.ToLower(proto)

	port, err := strconv.ParseUint(num, 10, 16)
	if err != nil || port == 0 {
		return 0, "", errors.ErrConfigInvalid("port", arg)
	}
	switch proto {
	case "tcp", "udp", "sctp":
	default:
		return 0, "", errors.ErrConfigInvalid("protocol", arg)
	}
	return uint16(port), proto, nil
}

