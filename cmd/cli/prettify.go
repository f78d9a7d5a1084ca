package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/anstrom/scanparser/internal/scandoc"
)

func newPrettifyCmd(_ *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "prettify FILE",
		Short: "Re-indent an XML document",
		Example: `  scanparser prettify office.xml
  scanparser prettify office.xml -o office.pretty.xml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrettify(args[0], output, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func runPrettify(path, output string, stdout io.Writer) error {
	in, err := os.Open(path) //nolint:gosec // operator supplied path
	if err != nil {
		return err
	}
	defer in.Close()

	if output == "" {
		return scandoc.Prettify(in, stdout)
	}

	out, err := os.Create(output) //nolint:gosec // operator supplied path
	if err != nil {
		return err
	}
	if err := scandoc.Prettify(in, out); err != nil {
		_ = out.Close()
		_ = os.Remove(output)
		return err
	}
	return out.Close()
}
