package vulkan

import (
	"github.com/spaghettifunk/leap/engine/core"
)

type resourceEntry struct {
	name    string
	release func()
}

// ResourceStack records a release function for every object as it is
// created and runs them in reverse order, so dependents always go before
// what they depend on. The renderer keeps one stack for objects living as
// long as the device and one for objects rebuilt with the swapchain.
type ResourceStack struct {
	name    string
	entries []resourceEntry
}

func NewResourceStack(name string) *ResourceStack {
	return &ResourceStack{name: name}
}

// Push registers release to run when the stack is released.
func (rs *ResourceStack) Push(name string, release func()) {
	rs.entries = append(rs.entries, resourceEntry{name: name, release: release})
}

// Release runs every registered release function, last pushed first, and
// empties the stack. It is safe to call more than once.
func (rs *ResourceStack) Release() {
	for i := len(rs.entries) - 1; i >= 0; i-- {
		e := rs.entries[i]
		core.LogDebug("releasing %s/%s", rs.name, e.name)
		e.release()
	}
	rs.entries = rs.entries[:0]
}

func (rs *ResourceStack) Len() int {
	return len(rs.entries)
}
