package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Gurilao-dev/exmonitor/internal/models"
	"github.com/Gurilao-dev/exmonitor/internal/services"
)

// Signaling message types. The relay never inspects the payloads of
// relay-eligible messages; it only routes them.
const (
	msgTypeAuth             = "auth"
	msgTypeAuthenticated    = "authenticated"
	msgTypeError            = "error"
	msgTypeOffer            = "offer"
	msgTypeAnswer           = "answer"
	msgTypeIceCandidate     = "ice-candidate"
	msgTypeRequestOffer     = "request-offer"
	msgTypeStopStream       = "stop-stream"
	msgTypeStreamStopped    = "stream-stopped"
	msgTypePeerDisconnected = "peer-disconnected"
	msgTypePing             = "ping"
	msgTypePong             = "pong"
)

type authMessage struct {
	Type        string `json:"type"`
	StreamToken string `json:"streamToken"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type authenticatedMessage struct {
	Type     string `json:"type"`
	UserID   string `json:"userId"`
	DeviceID string `json:"deviceId"`
}

type streamStoppedMessage struct {
	Type     string `json:"type"`
	DeviceID string `json:"deviceId"`
	UserID   string `json:"userId"`
}

type peerDisconnectedMessage struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// SignalingHandler relays WebRTC handshake messages between the transmitter
// and the authorized monitors of one device. Connections authenticate with a
// stream token before anything else; each connection is driven by a single
// read loop, so messages from one sender are relayed in arrival order.
type SignalingHandler struct {
	tokens   *services.TokenService
	registry *ConnectionRegistry
	logger   *zap.Logger

	upgrader websocket.Upgrader
}

func NewSignalingHandler(tokens *services.TokenService, registry *ConnectionRegistry, logger *zap.Logger) *SignalingHandler {
	return &SignalingHandler{
		tokens:   tokens,
		registry: registry,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *SignalingHandler) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var peer *Peer // nil until authenticated

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var base struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &base); err != nil {
			writeJSON(conn, errorMessage{Type: msgTypeError, Message: "invalid message format"})
			continue
		}

		if peer == nil {
			if base.Type != msgTypeAuth {
				writeJSON(conn, errorMessage{Type: msgTypeError, Message: "Not authenticated"})
				continue
			}
			peer = h.authenticate(conn, raw)
			if peer == nil {
				return // error already sent, connection must close
			}
			continue
		}

		switch base.Type {
		case msgTypeAuth:
			// Re-auth on a live connection is not a transition; ignore the
			// token and tell the client it is already authenticated.
			writeJSON(conn, errorMessage{Type: msgTypeError, Message: "already authenticated"})
		case msgTypeOffer, msgTypeAnswer, msgTypeIceCandidate, msgTypeRequestOffer:
			h.relayToPeers(peer, raw)
		case msgTypeStopStream:
			h.broadcast(peer.DeviceID, streamStoppedMessage{
				Type:     msgTypeStreamStopped,
				DeviceID: peer.DeviceID,
				UserID:   peer.ParticipantID,
			})
		case msgTypePing:
			peer.SendJSON(gin.H{"type": msgTypePong})
		default:
			peer.SendJSON(errorMessage{Type: msgTypeError, Message: "unknown message type"})
		}
	}

	if peer != nil && h.registry.Remove(peer) {
		h.broadcast(peer.DeviceID, peerDisconnectedMessage{
			Type:   msgTypePeerDisconnected,
			UserID: peer.ParticipantID,
		})
	}
}

// authenticate verifies the stream token and registers the connection.
// Returns nil after sending an error when the connection must close.
func (h *SignalingHandler) authenticate(conn *websocket.Conn, raw []byte) *Peer {
	var msg authMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.StreamToken == "" {
		writeJSON(conn, errorMessage{Type: msgTypeError, Message: "Stream token required"})
		return nil
	}

	claims, err := h.tokens.Verify(msg.StreamToken, models.TokenTypeStream)
	if err != nil {
		writeJSON(conn, errorMessage{Type: msgTypeError, Message: "Invalid stream token"})
		return nil
	}

	peer := NewPeer(conn, claims.DeviceID, claims.ParticipantID())
	if prev := h.registry.Register(peer); prev != nil {
		h.logger.Info("signaling reconnect displaced previous connection",
			zap.String("device_id", peer.DeviceID),
			zap.String("participant_id", peer.ParticipantID))
	}

	peer.SendJSON(authenticatedMessage{
		Type:     msgTypeAuthenticated,
		UserID:   peer.ParticipantID,
		DeviceID: peer.DeviceID,
	})
	return peer
}

// relayToPeers fans the sender's message out to every other participant on
// the same device, with the sender's identity injected as "from".
func (h *SignalingHandler) relayToPeers(sender *Peer, raw []byte) {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		sender.SendJSON(errorMessage{Type: msgTypeError, Message: "invalid message format"})
		return
	}
	payload["from"] = sender.ParticipantID

	encoded, err := json.Marshal(payload)
	if err != nil {
		return
	}

	for _, p := range h.registry.PeersExcept(sender.DeviceID, sender.ParticipantID) {
		if err := p.SendRaw(encoded); err != nil {
			h.logger.Debug("relay write failed",
				zap.String("device_id", p.DeviceID),
				zap.String("participant_id", p.ParticipantID),
				zap.Error(err))
		}
	}
}

// broadcast sends to every connection in the device group, sender included.
func (h *SignalingHandler) broadcast(deviceID string, v interface{}) {
	for _, p := range h.registry.DevicePeers(deviceID) {
		if err := p.SendJSON(v); err != nil {
			h.logger.Debug("broadcast write failed",
				zap.String("device_id", p.DeviceID),
				zap.String("participant_id", p.ParticipantID),
				zap.Error(err))
		}
	}
}

// writeJSON is for pre-auth writes, before a Peer with its write mutex
// exists. The read loop is the only writer at that point.
func writeJSON(conn *websocket.Conn, v interface{}) {
	conn.WriteJSON(v)
}
