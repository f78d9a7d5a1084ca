package scandoc

import (
	"encoding/xml"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/anstrom/scanparser/internal/errors"
)

const (
	// Fallback host status when the block carries no <status> element,
	// as in masscan output where every reported host responded.
	defaultHostStatus = "up"

	minPort = 1
	maxPort = 65535
)

var validProtocols = map[string]bool{
	"tcp":  true,
	"udp":  true,
	"sctp": true,
}

// Document is a decoded scan result. It is never modified after Parse.
type Document struct {
	// Scanner is the tool that produced the document, e.g. "nmap" or "masscan".
	Scanner string
	// Args is the command line the scanner was invoked with, if recorded.
	Args string

	hosts []hostXML
}

// Host is one <host> block with a usable address.
type Host struct {
	// Address is the IP address of the host, or its first address of any type
	Address string
	// AddrType is the address family as reported by the scanner ("ipv4", "ipv6", ...)
	AddrType string
	// Status is the host state ("up", "down", ...)
	Status string
	// Hostname is the first reported hostname, empty when none
	Hostname string
	// OS is the best OS guess, empty when none
	OS string

	ports []portXML
}

// Port is a single observed port under a Host.
type Port struct {
	// Number is the port number (1-65535)
	Number uint16
	// Protocol is the transport protocol ("tcp", "udp" or "sctp")
	Protocol string
	// State indicates whether the port is "open", "closed", "filtered", ...
	State string
	// Service is the service name declared by the scanner, empty when absent
	Service string
	// Version combines product, version and extra info, empty when absent
	Version string
}

// Parse decodes a scan document. A document whose root is not <nmaprun>
// is rejected with a *errors.DocumentError.
func Parse(r io.Reader) (*Document, error) {
	var run runXML
	if err := xml.NewDecoder(r).Decode(&run); err != nil {
		if err == io.EOF {
			return nil, errors.NewDocumentError("empty scan document")
		}
		return nil, errors.WrapDocumentError("missing or malformed <nmaprun> root", err)
	}

	return &Document{
		Scanner: run.Scanner,
		Args:    run.Args,
		hosts:   run.Hosts,
	}, nil
}

// Len returns the number of host blocks in the document, usable or not.
func (d *Document) Len() int {
	return len(d.hosts)
}

// Hosts yields the document's host blocks in order. Blocks without a
// usable address are yielded as a zero Host with a *errors.RecordError.
func (d *Document) Hosts() iter.Seq2[Host, error] {
	return func(yield func(Host, error) bool) {
		for i := range d.hosts {
			host, err := convertHost(&d.hosts[i])
			if !yield(host, err) {
				return
			}
		}
	}
}

func convertHost(h *hostXML) (Host, error) {
	addr := pickAddress(h.Addresses)
	if addr == nil {
		return Host{}, errors.NewHostSkipped("", "host block without address")
	}

	host := Host{
		Address:  addr.Addr,
		AddrType: addr.AddrType,
		Status:   defaultHostStatus,
		ports:    h.Ports,
	}
	if h.Status != nil && h.Status.State != "" {
		host.Status = h.Status.State
	}
	for _, hn := range h.Hostnames {
		if hn.Name != "" {
			host.Hostname = hn.Name
			break
		}
	}
	if len(h.OSMatches) > 0 {
		host.OS = h.OSMatches[0].Name
	}

	return host, nil
}

// pickAddress prefers an IP address over MAC or other address types.
func pickAddress(addrs []addressXML) *addressXML {
	var fallback *addressXML
	for i := range addrs {
		a := &addrs[i]
		if strings.TrimSpace(a.Addr) == "" {
			continue
		}
		switch a.AddrType {
		case "ipv4", "ipv6", "":
			return a
		}
		if fallback == nil {
			fallback = a
		}
	}
	return fallback
}

// Ports yields the host's port records in order. Records with an invalid
// port id, protocol or state are yielded with a *errors.RecordError.
func (h Host) Ports() iter.Seq2[Port, error] {
	return func(yield func(Port, error) bool) {
		for i := range h.ports {
			port, err := convertPort(h.Address, &h.ports[i])
			if !yield(port, err) {
				return
			}
		}
	}
}

// PortCount returns the number of port records under the host, usable or not.
func (h Host) PortCount() int {
	return len(h.ports)
}

func convertPort(address string, p *portXML) (Port, error) {
	number, err := strconv.Atoi(strings.TrimSpace(p.PortID))
	if err != nil || number < minPort || number > maxPort {
		return Port{}, errors.NewPortSkipped(address, p.PortID, "invalid port id")
	}

	protocol := strings.ToLower(strings.TrimSpace(p.Protocol))
	if !validProtocols[protocol] {
		return Port{}, errors.NewPortSkipped(address, p.PortID, "invalid protocol "+strconv.Quote(p.Protocol))
	}

	if p.State == nil || p.State.State == "" {
		return Port{}, errors.NewPortSkipped(address, p.PortID, "missing port state")
	}

	port := Port{
		Number:   uint16(number),
		Protocol: protocol,
		State:    p.State.State,
	}
	if p.Service != nil {
		port.Service = strings.TrimSpace(p.Service.Name)
		port.Version = joinNonEmpty(p.Service.Product, p.Service.Version, p.Service.ExtraInfo)
	}

	return port, nil
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " ")
}
