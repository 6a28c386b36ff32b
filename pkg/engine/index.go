package engine

import (
	"strings"

	"github.com/user/vulncorr/pkg/record"
)

// OSIdentity is the (operating system, version) key servers are grouped by.
type OSIdentity struct {
	OS      string
	Version string
}

// ParseAffects derives an identity from a vulnerability's affects value by
// splitting on the first underscore: "linux_ubuntu_20_04" is
// {linux, ubuntu_20_04}. It reports false when there is no underscore.
func ParseAffects(affects string) (OSIdentity, bool) {
	osName, version, found := strings.Cut(affects, "_")
	if !found {
		return OSIdentity{}, false
	}
	return OSIdentity{OS: osName, Version: version}, true
}

// OSIndex groups servers by OS identity. Group order follows insertion.
type OSIndex struct {
	groups map[OSIdentity][]record.Record
	order  []OSIdentity
}

// IndexByOS groups servers by their os and osVersion fields. Servers
// missing either field are left out.
func IndexByOS(servers []record.Record) *OSIndex {
	idx := &OSIndex{groups: make(map[OSIdentity][]record.Record)}
	for _, s := range servers {
		osName, ok := s.String("os")
		if !ok {
			continue
		}
		version, ok := s.String("osVersion")
		if !ok {
			continue
		}
		idx.Add(OSIdentity{OS: osName, Version: version}, s)
	}
	return idx
}

// Add appends a server to the group for id.
func (i *OSIndex) Add(id OSIdentity, server record.Record) {
	if _, ok := i.groups[id]; !ok {
		i.order = append(i.order, id)
	}
	i.groups[id] = append(i.groups[id], server)
}

// Lookup returns the servers for id in insertion order.
func (i *OSIndex) Lookup(id OSIdentity) ([]record.Record, bool) {
	servers, ok := i.groups[id]
	return servers, ok
}

// Identities lists the known identities in first-seen order.
func (i *OSIndex) Identities() []OSIdentity {
	out := make([]OSIdentity, len(i.order))
	copy(out, i.order)
	return out
}

// Len is the number of distinct identities.
func (i *OSIndex) Len() int {
	return len(i.order)
}
