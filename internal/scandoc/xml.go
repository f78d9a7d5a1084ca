package scandoc

import (
	"encoding/xml"
)

// runXML is the <nmaprun> root shared by nmap and masscan output.
// Numeric attributes are kept as strings so a single bad value only
// invalidates its own record.
type runXML struct {
	XMLName xml.Name  `xml:"nmaprun"`
	Scanner string    `xml:"scanner,attr"`
	Args    string    `xml:"args,attr"`
	Start   string    `xml:"start,attr"`
	Version string    `xml:"version,attr"`
	Hosts   []hostXML `xml:"host"`
}

type hostXML struct {
	Status    *statusXML    `xml:"status"`
	Addresses []addressXML  `xml:"address"`
	Hostnames []hostnameXML `xml:"hostnames>hostname"`
	Ports     []portXML     `xml:"ports>port"`
	OSMatches []osMatchXML  `xml:"os>osmatch"`
}

type statusXML struct {
	State  string `xml:"state,attr"`
	Reason string `xml:"reason,attr"`
}

type addressXML struct {
	Addr     string `xml:"addr,attr"`
	AddrType string `xml:"addrtype,attr"`
	Vendor   string `xml:"vendor,attr"`
}

type hostnameXML struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
}

type osMatchXML struct {
	Name     string `xml:"name,attr"`
	Accuracy string `xml:"accuracy,attr"`
}

type portXML struct {
	Protocol string      `xml:"protocol,attr"`
	PortID   string      `xml:"portid,attr"`
	State    *stateXML   `xml:"state"`
	Service  *serviceXML `xml:"service"`
}

type stateXML struct {
	State  string `xml:"state,attr"`
	Reason string `xml:"reason,attr"`
}

type serviceXML struct {
	Name      string `xml:"name,attr"`
	Product   string `xml:"product,attr"`
	Version   string `xml:"version,attr"`
	ExtraInfo string `xml:"extrainfo,attr"`
	Banner    string `xml:"banner,attr"`
}
