package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/anstrom/scanparser/internal/stats"
)

// TableRenderer prints each dimension as a table.
type TableRenderer struct {
	W io.Writer
}

// Render implements Renderer.
func (t TableRenderer) Render(dim stats.Dimension, rows []stats.Row) error {
	if _, err := fmt.Fprintf(t.W, "\nBy %s (%d observations)\n", dim, stats.Sum(rows)); err != nil {
		return err
	}

	table := tablewriter.NewWriter(t.W)
	table.Header(string(dim), "Count")
	for _, r := range rows {
		if err := table.Append([]string{r.Label, strconv.Itoa(r.Count)}); err != nil {
			return err
		}
	}
	return table.Render()
}
