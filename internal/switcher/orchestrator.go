// Package switcher drives the multi-step protocol that makes exactly one
// account active per platform: validate, refresh the credential, ensure a
// device binding, deactivate peers, then activate the target.
package switcher

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Step names the phase of the switch protocol a failure occurred in.
type Step string

const (
	StepValidating            Step = "Validating"
	StepRefreshingCredential  Step = "RefreshingCredential"
	StepEnsuringDeviceBinding Step = "EnsuringDeviceBinding"
	StepDeactivatingPeers     Step = "DeactivatingPeers"
	StepActivatingTarget      Step = "ActivatingTarget"
)

// Failure is a switch error tagged with the step that failed. Failures at
// or before EnsuringDeviceBinding mean no account state was touched;
// failures from DeactivatingPeers onward mean peers may already have been
// deactivated (deactivation alone never leaves two accounts active, so
// retrying the switch restores the invariant).
type Failure struct {
	Step Step
	Err  error
	// PeersLeftActive lists peers that could not be deactivated when the
	// failure happened during DeactivatingPeers.
	PeersLeftActive []string
}

func (f *Failure) Error() string {
	if len(f.PeersLeftActive) > 0 {
		return fmt.Sprintf("switch failed at %s (peers left active: %s): %v",
			f.Step, strings.Join(f.PeersLeftActive, ", "), f.Err)
	}
	return fmt.Sprintf("switch failed at %s: %v", f.Step, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// AsFailure extracts a step-tagged switch failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	ok := errors.As(err, &f)
	return f, ok
}

// platformLocks hands out one mutex per platform so concurrent switches on
// the same platform serialize while different platforms proceed in
// parallel.
type platformLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (p *platformLocks) get(key string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.locks == nil {
		p.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := p.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[key] = lock
	}
	return lock
}
