package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/scanparser/internal/errors"
	"github.com/anstrom/scanparser/internal/services"
)

const officeXML = `<?xml version="1.0"?>
<nmaprun scanner="nmap">
  <host><status state="up"/><address addr="10.0.0.1" addrtype="ipv4"/>
    <ports>
      <port protocol="tcp" portid="22"><state state="open"/><service name="ssh"/></port>
      <port protocol="tcp" portid="80"><state state="open"/><service name="http"/></port>
    </ports>
  </host>
  <host><status state="up"/><address addr="10.0.0.2" addrtype="ipv4"/>
    <ports><port protocol="tcp" portid="22"><state state="open"/></port></ports>
  </host>
</nmaprun>`

// execute runs the command tree from a clean working directory.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVisualize(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "office.xml", officeXML)

	out, err := execute(t, "visualize", input)
	require.NoError(t, err)

	assert.Contains(t, out, "Hosts: 2  Ports: 3")
	assert.FileExists(t, filepath.Join(dir, "office.sqlite3"))
	for _, suffix := range []string{"_byAddr.html", "_byPort.html", "_bySvc.html"} {
		assert.FileExists(t, filepath.Join(dir, "office"+suffix))
		assert.Contains(t, out, "office"+suffix)
	}
}

func TestVisualizeTableFormat(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "office.xml", officeXML)
	outDir := filepath.Join(dir, "charts")

	out, err := execute(t, "visualize", input, "--format", "table", "--output-dir", outDir)
	require.NoError(t, err)

	assert.Contains(t, out, "By service (3 observations)")
	assert.Contains(t, out, "ssh")
	assert.FileExists(t, filepath.Join(outDir, "office.sqlite3"))
	assert.NoFileExists(t, filepath.Join(outDir, "office_byAddr.html"))
}

func TestVisualizeEnvironmentOverride(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "office.xml", officeXML)
	t.Setenv("SCANPARSER_STORE_EXTENSION", ".db")
	t.Setenv("SCANPARSER_RENDER_FORMATS", "table")

	_, err := execute(t, "visualize", input)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "office.db"))
	assert.NoFileExists(t, filepath.Join(dir, "office_bySvc.html"))
}

func TestVisualizeMalformedDocument(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "broken.xml", "<nmaprun><host>")

	_, err := execute(t, "visualize", input)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeDocumentFormat))
	assert.NoFileExists(t, filepath.Join(dir, "broken.sqlite3"))
}

func TestVisualizeMetricsTextfile(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "office.xml", officeXML)
	prom := filepath.Join(dir, "scanparser.prom")
	cfg := writeFile(t, dir, "scanparser.yaml", "metrics:\n  textfile: "+prom+"\nrender:\n  formats: []\n")

	_, err := execute(t, "--config", cfg, "visualize", input)
	require.NoError(t, err)

	content, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(content), "scanparser_ingest_ports_total 3")
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "office.xml", officeXML)
	cfg := writeFile(t, dir, "scanparser.yaml", "logging:\n  format: xml\n")

	_, err := execute(t, "--config", cfg, "visualize", input)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidation))
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "services", "22")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeConfiguration))
}

func TestPrettify(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "flat.xml", `<a><b x="1">t</b><c/></a>`)

	out, err := execute(t, "prettify", input)
	require.NoError(t, err)
	assert.Equal(t, "<a>\n  <b x=\"1\">t</b>\n  <c></c>\n</a>\n", out)

	target := filepath.Join(dir, "pretty.xml")
	_, err = execute(t, "prettify", input, "-o", target)
	require.NoError(t, err)
	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, out, string(content))
}

func TestPrettifyTruncatedRemovesOutput(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "cut.xml", `<a><b>`)
	target := filepath.Join(dir, "pretty.xml")

	_, err := execute(t, "prettify", input, "-o", target)
	require.Error(t, err)
	assert.NoFileExists(t, target)
}

func TestServices(t *testing.T) {
	out, err := execute(t, "services", "22", "53/udp", "31337/tcp")
	require.NoError(t, err)

	assert.Contains(t, out, "ssh")
	assert.Contains(t, out, "domain")
	assert.Contains(t, out, services.Unknown)
}

func TestServicesCustomTable(t *testing.T) {
	dir := t.TempDir()
	table := writeFile(t, dir, "nmap-services", "lab-api\t9000/tcp\t0.1\n")
	cfg := writeFile(t, dir, "scanparser.yaml", "services:\n  file: "+table+"\n")

	out, err := execute(t, "--config", cfg, "services")
	require.NoError(t, err)
	assert.Contains(t, out, "lab-api")
	assert.Equal(t, 1, strings.Count(out, "9000"))
}

func TestParsePortSpec(t *testing.T) {
	tests := []struct {
		arg       string
		wantPort  uint16
		wantProto string
		wantErr   bool
	}{
		{arg: "22", wantPort: 22, wantProto: "tcp"},
		{arg: "53/udp", wantPort: 53, wantProto: "udp"},
		{arg: "443/TCP", wantPort: 443, wantProto: "tcp"},
		{arg: "80/", wantPort: 80, wantProto: "tcp"},
		{arg: "0", wantErr: true},
		{arg: "65536", wantErr: true},
		{arg: "ssh", wantErr: true},
		{arg: "22/icmp", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			port, proto, err := parsePortSpec(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPort, port)
			assert.Equal(t, tt.wantProto, proto)
		})
	}
}

func TestScanRequiresTargets(t *testing.T) {
	_, err := execute(t, "scan")
	assert.Error(t, err)

	_, err = execute(t, "scan", "--targets", "localhost", "--ports", "0")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidation))
}

func TestScanFlagsDoNotShadowVisualize(t *testing.T) {
	t.Chdir(t.TempDir())

	a := newApp()
	cmd := newRootCommand(a)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	// The invalid type fails after configuration is resolved and before nmap runs.
	cmd.SetArgs([]string{"--log-level", "error", "scan", "--targets", "localhost",
		"--type", "bogus", "--output-dir", "charts", "--format", "table"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidation))

	require.NotNil(t, a.cfg)
	assert.Equal(t, "charts", a.cfg.Render.OutputDir)
	assert.Equal(t, []string{"table"}, a.cfg.Render.Formats)
	assert.Equal(t, "error", a.cfg.Logging.Level)
}
