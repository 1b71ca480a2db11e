// Package transfer provides the minimal in-process transfer catalog the
// session facade's find_transfer capability needs: enough to satisfy
// serverconn.TransferFinder in tests and in the CLI, without pulling in any
// notion of piece storage, hashing, or peer-to-peer transfer itself.
package transfer

import (
	"sync"

	"github.com/zt8989/ed2k-serverconn/ed2k"
	"github.com/zt8989/ed2k-serverconn/serverconn"
)

// Transfer is one in-flight source lookup: a hash the caller is waiting on
// sources for, and the peers the server has most recently reported.
type Transfer struct {
	mu      sync.RWMutex
	hash    ed2k.Hash
	size    uint64
	live    bool
	sources []ed2k.SourceEndpoint
}

// NewTransfer creates a live transfer for hash/size. It stays live until
// Cancel is called.
func NewTransfer(hash ed2k.Hash, size uint64) *Transfer {
	return &Transfer{hash: hash, size: size, live: true}
}

func (t *Transfer) Hash() ed2k.Hash { return t.hash }
func (t *Transfer) Size() uint64    { return t.size }

// Live reports whether this transfer still wants source updates. Satisfies
// serverconn.SourceHandle.
func (t *Transfer) Live() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// SetSources records the peers the server most recently reported. Satisfies
// serverconn.SourceHandle.
func (t *Transfer) SetSources(peers []ed2k.SourceEndpoint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sources = append([]ed2k.SourceEndpoint(nil), peers...)
}

// Sources returns the most recently recorded peer list.
func (t *Transfer) Sources() []ed2k.SourceEndpoint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]ed2k.SourceEndpoint(nil), t.sources...)
}

// Cancel marks the transfer dead; a subsequent OP_FOUNDSOURCES for its hash
// is dropped by the connection instead of delivered.
func (t *Transfer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.live = false
}

// Manager is the catalog of transfers a session hands to the connection as
// its TransferFinder. One Manager is shared by every ServerConnection the
// session owns.
type Manager struct {
	mu        sync.RWMutex
	transfers map[ed2k.Hash]*Transfer
}

func NewManager() *Manager {
	return &Manager{transfers: map[ed2k.Hash]*Transfer{}}
}

// Add registers a transfer under its own hash, replacing any previous entry
// for that hash.
func (m *Manager) Add(t *Transfer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers[t.Hash()] = t
}

// Remove drops a transfer from the catalog outright. Prefer Cancel on the
// Transfer itself when a caller only wants to stop receiving sources
// without losing the entry for bookkeeping.
func (m *Manager) Remove(hash ed2k.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.transfers, hash)
}

// FindTransfer implements serverconn.TransferFinder. The returned handle is
// a nil interface when hash has no registered transfer, matching the
// "possibly-dead weak reference" contract the connection expects.
func (m *Manager) FindTransfer(hash ed2k.Hash) serverconn.SourceHandle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transfers[hash]
	if !ok {
		return nil
	}
	return t
}

// Count reports how many transfers are currently registered, live or not.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transfers)
}
