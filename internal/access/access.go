package access

import "strings"

// Policy authorizes privileged operations against a fixed allow-list of
// wallet addresses. The allow-list is injected at construction so it is
// testable with arbitrary sets; matching is case-insensitive. Client-side
// gating is UX only, this check is re-applied wherever a privileged
// action executes.
type Policy struct {
	admins map[string]struct{}
}

func NewPolicy(addresses []string) *Policy {
	admins := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		if addr = strings.ToLower(strings.TrimSpace(addr)); addr != "" {
			admins[addr] = struct{}{}
		}
	}
	return &Policy{admins: admins}
}

func (p *Policy) IsAdmin(address string) bool {
	_, ok := p.admins[strings.ToLower(address)]
	return ok
}
