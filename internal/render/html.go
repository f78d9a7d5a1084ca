package render

import (
	_ "embed"
	"fmt"
	"html/template"
	"os"

	"github.com/anstrom/scanparser/internal/errors"
	"github.com/anstrom/scanparser/internal/stats"
)

const (
	// DefaultExtension is the file extension of chart artifacts.
	DefaultExtension = ".html"

	minBubble = 10.0
	maxBubble = 60.0

	chartFilePerm = 0o644
)

//go:embed bubble.html.tmpl
var bubbleTemplate string

var chartTemplate = template.Must(template.New("bubble").Parse(bubbleTemplate))

type chartData struct {
	Title  string
	Axis   string
	Labels []string
	Counts []int
	Sizes  []float64
	Hover  []string
}

// HTMLRenderer writes one bubble chart per dimension to
// <Base>_by{Addr,Port,Svc}<Extension>.
type HTMLRenderer struct {
	Base      string
	Extension string

	written []string
}

// NewHTMLRenderer creates a chart renderer for an artifact base.
func NewHTMLRenderer(base, extension string) *HTMLRenderer {
	if extension == "" {
		extension = DefaultExtension
	}
	return &HTMLRenderer{Base: base, Extension: extension}
}

// Path returns the chart file for dim.
func (h *HTMLRenderer) Path(dim stats.Dimension) string {
	return h.Base + dim.Suffix() + h.Extension
}

// Written lists the chart files produced so far.
func (h *HTMLRenderer) Written() []string {
	return append([]string(nil), h.written...)
}

// Render writes the chart for dim, replacing any earlier file.
func (h *HTMLRenderer) Render(dim stats.Dimension, rows []stats.Row) error {
	path := h.Path(dim)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, chartFilePerm) //nolint:gosec // derived from the input path
	if err != nil {
		return errors.WrapRenderError("Cannot create chart", path, err)
	}

	if err := chartTemplate.Execute(f, newChartData(dim, rows)); err != nil {
		_ = f.Close()
		return errors.WrapRenderError("Cannot render chart", path, err)
	}
	if err := f.Close(); err != nil {
		return errors.WrapRenderError("Cannot write chart", path, err)
	}

	h.written = append(h.written, path)
	return nil
}

func newChartData(dim stats.Dimension, rows []stats.Row) chartData {
	data := chartData{
		Title:  fmt.Sprintf("Port observations by %s", dim),
		Axis:   string(dim),
		Labels: make([]string, len(rows)),
		Counts: make([]int, len(rows)),
		Sizes:  make([]float64, len(rows)),
		Hover:  make([]string, len(rows)),
	}

	highest := 0
	for _, r := range rows {
		highest = max(highest, r.Count)
	}
	for i, r := range rows {
		data.Labels[i] = r.Label
		data.Counts[i] = r.Count
		data.Hover[i] = fmt.Sprintf("%s: %d", r.Label, r.Count)
		data.Sizes[i] = bubbleSize(r.Count, highest)
	}
	return data
}

// bubbleSize scales a count linearly into [minBubble, maxBubble].
func bubbleSize(count, highest int) float64 {
	if highest <= 0 {
		return minBubble
	}
	return minBubble + (maxBubble-minBubble)*float64(count)/float64(highest)
}
