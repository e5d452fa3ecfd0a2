// Package registry holds the normalized proxies of one build in input order,
// with display names made unique.
package registry

import (
	"maps"
	"net"
	"strconv"

	"github.com/provolone8305/sublink-worker/internal/model"
	"github.com/provolone8305/sublink-worker/internal/normalize"
	"github.com/provolone8305/sublink-worker/internal/outbound"
)

type Registry struct {
	proxies []model.Proxy
	names   []string
}

// New normalizes descriptors in order. Names are resolved so that every
// reference is unambiguous:
//   - an empty name becomes "server:port";
//   - a name already taken by an earlier proxy, DIRECT/REJECT, or one of
//     reserved gets the first free "name-N" with N >= 2.
func New(descriptors []outbound.Descriptor, reserved []string) *Registry {
	taken := make(map[string]struct{}, len(descriptors)+len(reserved)+2)
	taken[model.Direct] = struct{}{}
	taken[model.Reject] = struct{}{}
	for _, r := range reserved {
		taken[r] = struct{}{}
	}

	r := &Registry{
		proxies: make([]model.Proxy, 0, len(descriptors)),
		names:   make([]string, 0, len(descriptors)),
	}
	for _, d := range descriptors {
		p := normalize.Normalize(d)

		name := p.Name
		if name == "" {
			name = net.JoinHostPort(p.Server, strconv.Itoa(p.Port))
		}
		name = uniqueName(name, taken)
		taken[name] = struct{}{}

		if name != p.Name {
			p.Name = name
			if p.Raw != nil {
				p.Raw = maps.Clone(p.Raw)
				p.Raw["name"] = name
			}
		}
		r.proxies = append(r.proxies, p)
		r.names = append(r.names, name)
	}
	return r
}

func uniqueName(name string, taken map[string]struct{}) string {
	if _, ok := taken[name]; !ok {
		return name
	}
	for n := 2; ; n++ {
		candidate := name + "-" + strconv.Itoa(n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

func (r *Registry) Len() int { return len(r.proxies) }

// Proxies returns a copy; callers may reorder or append freely.
func (r *Registry) Proxies() []model.Proxy {
	return append([]model.Proxy(nil), r.proxies...)
}

// Names returns the display names in input order, as a fresh slice.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}
