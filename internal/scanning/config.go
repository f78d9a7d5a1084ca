package scanning

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/anstrom/scanparser/internal/errors"
)

const (
	// Port validation constants.
	expectedPortRangeParts = 2
	maxPort                = 65535
)

// Scan types.
const (
	TypeConnect    = "connect"
	TypeSYN        = "syn"
	TypeVersion    = "version"
	TypeAggressive = "aggressive"
	TypeStealth    = "stealth"
)

var validScanTypes = map[string]bool{
	TypeConnect:    true,
	TypeSYN:        true,
	TypeVersion:    true,
	TypeAggressive: true,
	TypeStealth:    true,
}

// Config represents the configuration for a live nmap scan.
type Config struct {
	// Targets is a list of targets to scan (IPs, hostnames, CIDR ranges)
	Targets []string
	// Ports specifies which ports to scan (e.g., "80,443" or "1-1000")
	Ports string
	// ScanType selects the nmap technique, see the package documentation
	ScanType string
	// TimeoutSec bounds the whole scan in seconds (0 = no limit)
	TimeoutSec int
}

// Validate checks if the scan configuration is valid.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return errors.ErrConfigInvalid("targets", c.Targets)
	}
	if c.Ports == "" {
		return errors.ErrConfigInvalid("ports", c.Ports)
	}
	if !validScanTypes[c.ScanType] {
		return errors.ErrConfigInvalid("type", c.ScanType)
	}
	if c.TimeoutSec < 0 {
		return errors.ErrConfigInvalid("timeout", c.TimeoutSec)
	}

	for _, part := range strings.Split(c.Ports, ",") {
		if err := validatePortPart(strings.TrimSpace(part)); err != nil {
			invalid := errors.ErrConfigInvalid("ports", c.Ports)
			invalid.Cause = err
			return invalid
		}
	}
	return nil
}

// validatePortPart validates a single port or a port range (e.g., "80-100").
func validatePortPart(part string) error {
	if !strings.Contains(part, "-") {
		_, err := parsePort(part)
		return err
	}

	rangeParts := strings.Split(part, "-")
	if len(rangeParts) != expectedPortRangeParts {
		return fmt.Errorf("invalid port range format: %s", part)
	}
	start, err := parsePort(rangeParts[0])
	if err != nil {
		return err
	}
	end, err := parsePort(rangeParts[1])
	if err != nil {
		return err
	}
	if start > end {
		return fmt.Errorf("invalid port range %s: start port must not exceed end port", part)
	}
	return nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port: %q", s)
	}
	if port < 1 || port > maxPort {
		return 0, fmt.Errorf("invalid port: %d (must be 1-%d)", port, maxPort)
	}
	return port, nil
}
