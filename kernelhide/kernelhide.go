// Package kernelhide is the host-side control plane for the optional
// privileged collaborator: a bounded list of target process IDs whose
// root-related paths should read back as not found. The hiding mechanism
// itself (a kernel hook, an LD_PRELOAD shim, ...) is out of scope; this
// package only implements the registration/query interface and the
// process-wide mutex-guarded state it requires.
package kernelhide

import (
	"strings"
	"sync"
)

// MaxTargetApps bounds the target-PID list, mirroring the kernel
// collaborator's fixed-size array.
const MaxTargetApps = 32

// hiddenPathMarkers are the path substrings hidden from a registered PID's
// view. Widened from the kernel collaborator's {"/su", "/magisk", "ksu"}
// set to also cover busybox and this project's own device node.
var hiddenPathMarkers = []string{"/su", "/magisk", "ksu", "busybox", "/dev/deepeye"}

// Registry holds the process-wide target-PID list behind a mutex, exactly
// as the kernel collaborator's single global struct does.
type Registry struct {
	mu   sync.Mutex
	pids []int
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Register adds pid to the target list. It is a no-op once the list has
// reached MaxTargetApps, matching the kernel collaborator's fixed-capacity
// behavior rather than growing unbounded.
func (r *Registry) Register(pid int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pids {
		if p == pid {
			return true
		}
	}
	if len(r.pids) >= MaxTargetApps {
		return false
	}
	r.pids = append(r.pids, pid)
	return true
}

// Unregister removes pid from the target list, if present.
func (r *Registry) Unregister(pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.pids {
		if p == pid {
			r.pids = append(r.pids[:i], r.pids[i+1:]...)
			return
		}
	}
}

// IsTarget reports whether pid is currently registered.
func (r *Registry) IsTarget(pid int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pids {
		if p == pid {
			return true
		}
	}
	return false
}

// IsPathHidden reports whether path should be hidden from pid: pid must be
// registered and path must contain one of the hidden-path markers.
func (r *Registry) IsPathHidden(pid int, path string) bool {
	if !r.IsTarget(pid) {
		return false
	}
	for _, marker := range hiddenPathMarkers {
		if strings.Contains(path, marker) {
			return true
		}
	}
	return false
}

// Teardown clears the target list, releasing all registrations.
func (r *Registry) Teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pids = nil
}
