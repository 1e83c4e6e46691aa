package handlers

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Peer is one live, authenticated signaling connection. Writes are
// serialized by a mutex because fan-out means several reader goroutines may
// target the same socket, and gorilla permits only one concurrent writer.
type Peer struct {
	DeviceID      string
	ParticipantID string

	conn    *websocket.Conn
	writeMu sync.Mutex
}

func NewPeer(conn *websocket.Conn, deviceID, participantID string) *Peer {
	return &Peer{
		DeviceID:      deviceID,
		ParticipantID: participantID,
		conn:          conn,
	}
}

// SendJSON writes a JSON message to the peer.
func (p *Peer) SendJSON(v interface{}) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteJSON(v)
}

// SendRaw writes a pre-encoded text message to the peer.
func (p *Peer) SendRaw(payload []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteMessage(websocket.TextMessage, payload)
}

type connKey struct {
	deviceID      string
	participantID string
}

// ConnectionRegistry maps (device, participant) to the live connection for
// that pair. At most one entry per key: re-authenticating under a key that
// is already registered replaces the old entry, representing reconnection.
type ConnectionRegistry struct {
	mu    sync.RWMutex
	conns map[connKey]*Peer
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{conns: make(map[connKey]*Peer)}
}

// Register installs the peer under its key, returning any peer it displaced.
func (r *ConnectionRegistry) Register(p *Peer) *Peer {
	key := connKey{p.DeviceID, p.ParticipantID}
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.conns[key]
	r.conns[key] = p
	return prev
}

// Remove deletes the peer's entry, but only while the entry is still owned
// by this peer. A connection closing after being displaced by a reconnect
// must not tear down its replacement.
func (r *ConnectionRegistry) Remove(p *Peer) bool {
	key := connKey{p.DeviceID, p.ParticipantID}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[key] != p {
		return false
	}
	delete(r.conns, key)
	return true
}

// PeersExcept returns every registered connection for the device other than
// the named participant.
func (r *ConnectionRegistry) PeersExcept(deviceID, participantID string) []*Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var peers []*Peer
	for key, p := range r.conns {
		if key.deviceID == deviceID && key.participantID != participantID {
			peers = append(peers, p)
		}
	}
	return peers
}

// DevicePeers returns every registered connection for the device.
func (r *ConnectionRegistry) DevicePeers(deviceID string) []*Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var peers []*Peer
	for key, p := range r.conns {
		if key.deviceID == deviceID {
			peers = append(peers, p)
		}
	}
	return peers
}

// Len reports the number of live registered connections.
func (r *ConnectionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
