package extension

import "sync"

// The process-wide manager directory. Every NewManager call appends to
// it; managers live for the process lifetime, so there is no removal.
var directory = struct {
	mu       sync.RWMutex
	managers []*Manager
}{}

func registerManager(m *Manager) {
	directory.mu.Lock()
	defer directory.mu.Unlock()
	directory.managers = append(directory.managers, m)
}

// Managers returns every lifecycle manager constructed in this process,
// in construction order. Hosts running several independent extension
// sets use this to enumerate them.
func Managers() []*Manager {
	directory.mu.RLock()
	defer directory.mu.RUnlock()
	out := make([]*Manager, len(directory.managers))
	copy(out, directory.managers)
	return out
}

// ManagerByKey returns the first manager registered with the given key,
// or nil when none matches.
func ManagerByKey(key string) *Manager {
	directory.mu.RLock()
	defer directory.mu.RUnlock()
	for _, m := range directory.managers {
		if m.key == key {
			return m
		}
	}
	return nil
}
