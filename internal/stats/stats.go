// Package stats groups ingested port observations into (label, count)
// rows along three dimensions: host address, port number and service.
package stats

import (
	"context"
	"sort"
	"strconv"

	"github.com/anstrom/scanparser/internal/store"
)

// Dimension names a grouping of port observations.
type Dimension string

const (
	ByAddress Dimension = "address"
	ByPort    Dimension = "port"
	ByService Dimension = "service"
)

// Dimensions lists every dimension in rendering order.
var Dimensions = []Dimension{ByAddress, ByPort, ByService}

// Suffix returns the artifact name suffix for the dimension.
func (d Dimension) Suffix() string {
	switch d {
	case ByAddress:
		return "_byAddr"
	case ByPort:
		return "_byPort"
	case ByService:
		return "_bySvc"
	default:
		return "_by" + string(d)
	}
}

// Row is one aggregate statistic.
type Row struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Aggregator holds the grouped counts of one populated store. It is
// built in a single pass and never changes afterwards.
type Aggregator struct {
	total     int
	addresses map[string]int
	ports     map[int]int
	services  map[string]int
}

// New groups observations along all dimensions.
func New(observations []store.PortObservation) *Aggregator {
	a := &Aggregator{
		total:     len(observations),
		addresses: make(map[string]int),
		ports:     make(map[int]int),
		services:  make(map[string]int),
	}
	for _, o := range observations {
		a.addresses[o.Address]++
		a.ports[o.Port]++
		a.services[o.Service]++
	}
	return a
}

// FromStore reads all observations of s and groups them.
func FromStore(ctx context.Context, s *store.Store) (*Aggregator, error) {
	observations, err := s.Observations(ctx)
	if err != nil {
		return nil, err
	}
	return New(observations), nil
}

// Total returns the number of observations grouped.
func (a *Aggregator) Total() int {
	return a.total
}

// ByAddress counts ports per host, highest first, ties by address.
func (a *Aggregator) ByAddress() []Row {
	return sortedRows(a.addresses, func(k string) string { return k }, func(x, y string) bool { return x < y })
}

// ByPort counts observations per port number, highest first, ties by
// ascending port number.
func (a *Aggregator) ByPort() []Row {
	return sortedRows(a.ports, strconv.Itoa, func(x, y int) bool { return x < y })
}

// ByService counts observations per resolved service name, highest
// first, ties by name.
func (a *Aggregator) ByService() []Row {
	return sortedRows(a.services, func(k string) string { return k }, func(x, y string) bool { return x < y })
}

// Rows returns the rows for d, or nil for an unknown dimension.
func (a *Aggregator) Rows(d Dimension) []Row {
	switch d {
	case ByAddress:
		return a.ByAddress()
	case ByPort:
		return a.ByPort()
	case ByService:
		return a.ByService()
	}
	return nil
}

func sortedRows[K comparable](counts map[K]int, label func(K) string, less func(K, K) bool) []Row {
	keys := make([]K, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := counts[keys[i]], counts[keys[j]]
		if ci != cj {
			return ci > cj
		}
		return less(keys[i], keys[j])
	})

	rows := make([]Row, len(keys))
	for i, k := range keys {
		rows[i] = Row{Label: label(k), Count: counts[k]}
	}
	return rows
}

// Sum adds up the counts of rows.
func Sum(rows []Row) int {
	total := 0
	for _, r := range rows {
		total += r.Count
	}
	return total
}
