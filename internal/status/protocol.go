package status

import (
	"encoding/json"

	"github.com/streamvr/server/internal/host"
)

type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgDelta    MessageType = "delta"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// Envelope is the receive side of WSMessage; Payload is decoded according
// to Type.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type SnapshotPayload struct {
	Status Snapshot `json:"status"`
}

type DeltaPayload struct {
	Calls  []host.Call `json:"calls"`
	Status Snapshot    `json:"status"`
}
