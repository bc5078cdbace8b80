package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/masaha03/chatgpt-app/internal/chat"
)

// Bridge forwards session snapshots to the program. Only the latest pending
// snapshot is kept, so a slow redraw never blocks the session.
type Bridge struct {
	ch chan chat.Snapshot
}

// NewBridge creates a bridge; register Observe with chat.WithObserver
func NewBridge() *Bridge {
	return &Bridge{ch: make(chan chat.Snapshot, 1)}
}

// Observe is a chat.Observer
func (b *Bridge) Observe(snap chat.Snapshot) {
	for {
		select {
		case b.ch <- snap:
			return
		default:
		}
		// drop the stale snapshot the program has not picked up yet
		select {
		case <-b.ch:
		default:
		}
	}
}

// snapshotMsg carries a session change into Update
type snapshotMsg struct {
	snap chat.Snapshot
}

// waitForSnapshot blocks until the next session change
func waitForSnapshot(ch <-chan chat.Snapshot) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg{snap: <-ch}
	}
}
