package store

// HostRow is a row of the hosts relation.
type HostRow struct {
	ID       int64   `db:"id"`
	Address  string  `db:"address"`
	AddrType *string `db:"addrtype"`
	Status   string  `db:"status"`
	Hostname *string `db:"hostname"`
	OS       *string `db:"os"`
}

// PortRow is a row of the ports relation.
type PortRow struct {
	ID       int64   `db:"id"`
	HostID   int64   `db:"host_id"`
	Port     int     `db:"port"`
	Protocol string  `db:"protocol"`
	State    string  `db:"state"`
	Service  string  `db:"service"`
	Version  *string `db:"version"`
}

// ServiceRow is a row of the services reference relation.
type ServiceRow struct {
	Port     int    `db:"port"`
	Protocol string `db:"protocol"`
	Name     string `db:"name"`
}

// PortObservation joins a port row with its host address.
type PortObservation struct {
	Address  string `db:"address"`
	Port     int    `db:"port"`
	Protocol string `db:"protocol"`
	Service  string `db:"service"`
}

// Optional maps an empty string to NULL.
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
