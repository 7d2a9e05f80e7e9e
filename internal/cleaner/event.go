package cleaner

import (
	"fmt"
	"io/fs"
)

type EventKind int

const (
	Deleted EventKind = iota
	Chmod
	RemovedEmptyDir
	RemovedDanglingSymlink
	RemovedTree
)

func (k EventKind) String() string {
	switch k {
	case Deleted:
		return "deleted"
	case Chmod:
		return "chmod"
	case RemovedEmptyDir:
		return "removed empty dir"
	case RemovedDanglingSymlink:
		return "removed dangling symlink"
	case RemovedTree:
		return "removed tree"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is emitted once per successful mutation. OldMode and NewMode are
// only set for Chmod.
type Event struct {
	Kind    EventKind
	Path    string
	OldMode fs.FileMode
	NewMode fs.FileMode
}

func (e Event) String() string {
	if e.Kind == Chmod {
		return fmt.Sprintf("chmod %s %o -> %o", e.Path, e.OldMode, e.NewMode)
	}
	return fmt.Sprintf("%s %s", e.Kind, e.Path)
}

// Observer receives events synchronously, in the order mutations happen.
type Observer func(Event)

// Tee fans an event out to every non-nil observer.
func Tee(observers ...Observer) Observer {
	return func(e Event) {
		for _, o := range observers {
			if o != nil {
				o(e)
			}
		}
	}
}

// Summary counts events by kind.
type Summary struct {
	Deleted         int
	Chmod           int
	RemovedDirs     int
	RemovedSymlinks int
	RemovedTrees    int
}

func (s *Summary) Observe(e Event) {
	switch e.Kind {
	case Deleted:
		s.Deleted++
	case Chmod:
		s.Chmod++
	case RemovedEmptyDir:
		s.RemovedDirs++
	case RemovedDanglingSymlink:
		s.RemovedSymlinks++
	case RemovedTree:
		s.RemovedTrees++
	}
}

// Total is the number of mutations recorded.
func (s Summary) Total() int {
	return s.Deleted + s.Chmod + s.RemovedDirs + s.RemovedSymlinks + s.RemovedTrees
}
