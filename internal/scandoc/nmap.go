package scandoc

import (
	"strconv"

	"github.com/Ullaakut/nmap/v3"
)

// FromRun converts a result returned by the nmap library into a Document,
// so a live scan goes through the same record checks as a file.
func FromRun(run *nmap.Run) *Document {
	doc := &Document{Scanner: run.Scanner, Args: run.Args}
	if doc.Scanner == "" {
		doc.Scanner = "nmap"
	}

	doc.hosts = make([]hostXML, 0, len(run.Hosts))
	for i := range run.Hosts {
		doc.hosts = append(doc.hosts, hostFromNmap(&run.Hosts[i]))
	}
	return doc
}

func hostFromNmap(h *nmap.Host) hostXML {
	host := hostXML{
		Status: &statusXML{State: h.Status.State, Reason: h.Status.Reason},
	}
	for _, addr := range h.Addresses {
		host.Addresses = append(host.Addresses, addressXML{
			Addr:     addr.Addr,
			AddrType: addr.AddrType,
			Vendor:   addr.Vendor,
		})
	}
	for _, hn := range h.Hostnames {
		host.Hostnames = append(host.Hostnames, hostnameXML{Name: hn.Name, Type: hn.Type})
	}
	for _, match := range h.OS.Matches {
		host.OSMatches = append(host.OSMatches, osMatchXML{
			Name:     match.Name,
			Accuracy: strconv.Itoa(match.Accuracy),
		})
	}
	for j := range h.Ports {
		p := &h.Ports[j]
		port := portXML{
			Protocol: p.Protocol,
			PortID:   strconv.Itoa(int(p.ID)),
			Service: &serviceXML{
				Name:      p.Service.Name,
				Product:   p.Service.Product,
				Version:   p.Service.Version,
				ExtraInfo: p.Service.ExtraInfo,
			},
		}
		if p.State.State != "" {
			port.State = &stateXML{State: p.State.State, Reason: p.State.Reason}
		}
		host.Ports = append(host.Ports, port)
	}
	return host
}
