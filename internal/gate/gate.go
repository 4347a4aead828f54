// ABOUTME: Navigation gate: picks which stack to mount from a session snapshot
// ABOUTME: Keeps no state; every snapshot is projected afresh

package gate

import "github.com/gymtrack/gymtrack/internal/session"

// Stack is a top-level navigation stack
type Stack int

const (
	// StackLoading is the neutral view shown while the session is unknown
	StackLoading Stack = iota
	// StackAuth holds the sign-in and sign-up screens
	StackAuth
	// StackApp holds the signed-in screens
	StackApp
)

func (s Stack) String() string {
	switch s {
	case StackAuth:
		return "auth"
	case StackApp:
		return "app"
	default:
		return "loading"
	}
}

// Select maps a snapshot to the stack that must be mounted
func Select(snap session.Snapshot) Stack {
	if snap.IsLoading {
		return StackLoading
	}
	switch snap.State {
	case session.Authenticated:
		if snap.User == nil {
			return StackLoading
		}
		return StackApp
	case session.Anonymous:
		return StackAuth
	default:
		return StackLoading
	}
}

// Source delivers the current snapshot and every later one
type Source interface {
	Watch(fn func(session.Snapshot)) (unsubscribe func())
}

// Mount calls mount with the stack for the current snapshot and again after
// every transition until the returned func is called.
func Mount(src Source, mount func(Stack)) (unmount func()) {
	return src.Watch(func(snap session.Snapshot) {
		mount(Select(snap))
	})
}
