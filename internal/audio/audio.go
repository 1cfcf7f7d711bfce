// Package audio is the fire-and-forget sound mailbox. Gameplay and physics
// code post trigger messages here without waiting; whatever playback backend
// is attached drains the mailbox on its own schedule. No acknowledgement,
// no status reporting.
package audio

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Message is one sound trigger.
type Message interface {
	isSoundMessage()
}

// PlaySoundMessage triggers a one-shot sample at a world position.
type PlaySoundMessage struct {
	Sound    string
	Position mgl32.Vec3
	Volume   float32
}

// StopSoundMessage cancels every playing instance of a sample. Stopping a
// sound that is not playing is a no-op.
type StopSoundMessage struct {
	Sound string
}

func (PlaySoundMessage) isSoundMessage() {}
func (StopSoundMessage) isSoundMessage() {}

// Mailbox collects sound messages until a consumer drains them. Safe for
// concurrent producers.
type Mailbox struct {
	mu    sync.Mutex
	inbox []Message
}

func NewMailbox() *Mailbox {
	return &Mailbox{}
}

func (m *Mailbox) Enqueue(msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbox = append(m.inbox, msg)
}

// Drain returns every pending message and leaves the mailbox empty. The
// swap is atomic with respect to Enqueue.
func (m *Mailbox) Drain() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.inbox
	m.inbox = nil
	return out
}

func (m *Mailbox) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inbox)
}
