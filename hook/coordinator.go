package hook

import "sort"

// Coordinator turns consumer requests into desired hook states. A hook is
// wanted enabled while at least one consumer requests it and falls back to
// its default once the last request is released.
type Coordinator struct {
	m        *Manager
	requests map[string]map[string]struct{} // hook -> consumers
	tracked  map[string]bool                 // hooks Reconcile still has to visit
}

// NewCoordinator returns a coordinator for m's hooks.
func NewCoordinator(m *Manager) *Coordinator {
	return &Coordinator{
		m:        m,
		requests: make(map[string]map[string]struct{}),
		tracked:  make(map[string]bool),
	}
}

// Request asks for hook to be enabled on behalf of consumer.
func (c *Coordinator) Request(consumer, hook string) {
	set := c.requests[hook]
	if set == nil {
		set = make(map[string]struct{})
		c.requests[hook] = set
	}
	set[consumer] = struct{}{}
	c.tracked[hook] = true
}

// Release drops consumer's request for hook.
func (c *Coordinator) Release(consumer, hook string) {
	set := c.requests[hook]
	if set == nil {
		return
	}
	delete(set, consumer)
	if len(set) == 0 {
		delete(c.requests, hook)
	}
}

// ReleaseAll drops every request made by consumer.
func (c *Coordinator) ReleaseAll(consumer string) {
	for hook := range c.requests {
		c.Release(consumer, hook)
	}
}

// Requesters returns the consumers currently requesting hook, sorted.
func (c *Coordinator) Requesters(hook string) []string {
	out := make([]string, 0, len(c.requests[hook]))
	for consumer := range c.requests[hook] {
		out = append(out, consumer)
	}
	sort.Strings(out)
	return out
}

// Reconcile pushes the wanted state into every tracked hook whose desired
// state differs. Hooks without outstanding requests stop being tracked once
// they are back at their default. Unknown hooks stay tracked so a later
// registration picks the request up.
func (c *Coordinator) Reconcile() {
	for name := range c.tracked {
		h, ok := c.m.Lookup(name)
		if !ok {
			if len(c.requests[name]) == 0 {
				delete(c.tracked, name)
			}
			continue
		}
		_, wanted := c.requests[name]
		if !wanted {
			wanted = h.spec.DefaultEnabled
		}
		if h.Desired() != wanted && !h.SetEnabled(wanted) {
			continue
		}
		if len(c.requests[name]) == 0 {
			delete(c.tracked, name)
		}
	}
}
