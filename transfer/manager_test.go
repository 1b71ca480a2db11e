package transfer

import (
	"testing"

	"github.com/zt8989/ed2k-serverconn/ed2k"
)

func TestManagerFindTransferMissingReturnsNilInterface(t *testing.T) {
	m := NewManager()
	hash, _ := ed2k.ParseHash("0102030405060708090a0b0c0d0e0f10")
	if h := m.FindTransfer(hash); h != nil {
		t.Fatalf("expected a true nil interface for a missing hash, got %v", h)
	}
}

func TestManagerAddFindRemove(t *testing.T) {
	m := NewManager()
	hash, _ := ed2k.ParseHash("0102030405060708090a0b0c0d0e0f10")
	tr := NewTransfer(hash, 1000)
	m.Add(tr)

	if m.Count() != 1 {
		t.Fatalf("expected 1 registered transfer, got %d", m.Count())
	}
	handle := m.FindTransfer(hash)
	if handle == nil {
		t.Fatal("expected a non-nil handle after Add")
	}
	if !handle.Live() {
		t.Fatal("a freshly added transfer should be live")
	}

	m.Remove(hash)
	if m.Count() != 0 {
		t.Fatalf("expected 0 after Remove, got %d", m.Count())
	}
	if h := m.FindTransfer(hash); h != nil {
		t.Fatal("expected nil after Remove")
	}
}

func TestTransferCancelMarksDead(t *testing.T) {
	hash, _ := ed2k.ParseHash("0102030405060708090a0b0c0d0e0f10")
	tr := NewTransfer(hash, 500)
	if !tr.Live() {
		t.Fatal("a new transfer should start live")
	}
	tr.Cancel()
	if tr.Live() {
		t.Fatal("Cancel should mark the transfer dead")
	}
}

func TestTransferSetSourcesCopiesSlice(t *testing.T) {
	hash, _ := ed2k.ParseHash("0102030405060708090a0b0c0d0e0f10")
	tr := NewTransfer(hash, 500)
	peers := []ed2k.SourceEndpoint{{ClientID: 1, Port: 4662}, {ClientID: 2, Port: 4663}}
	tr.SetSources(peers)

	peers[0].ClientID = 999
	got := tr.Sources()
	if len(got) != 2 || got[0].ClientID != 1 {
		t.Fatalf("expected SetSources to copy its input, got %+v", got)
	}
}

func TestManagerAddReplacesExistingEntryForSameHash(t *testing.T) {
	m := NewManager()
	hash, _ := ed2k.ParseHash("0102030405060708090a0b0c0d0e0f10")
	first := NewTransfer(hash, 100)
	second := NewTransfer(hash, 200)
	m.Add(first)
	m.Add(second)

	if m.Count() != 1 {
		t.Fatalf("expected replacement to keep count at 1, got %d", m.Count())
	}
	handle := m.FindTransfer(hash)
	got, ok := handle.(*Transfer)
	if !ok || got.Size() != 200 {
		t.Fatalf("expected the second transfer to win, got %+v", got)
	}
}
