package model

import "encoding/json"

// Notification kinds emitted by pools and the registry.
const (
	KindDeposit     = "deposit"
	KindWithdraw    = "withdraw"
	KindTrade       = "trade"
	KindSync        = "sync"
	KindPoolCreated = "pool_created"
)

// Notification is the append-only record a pool emits on every state change.
// Nothing in the engine reads these back; they exist for external indexers.
type Notification struct {
	Seq       uint64      `json:"seq"`
	Pool      string      `json:"pool"`
	Kind      string      `json:"kind"`
	Timestamp uint64      `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NotificationRecord is the decode-side counterpart of Notification, keeping
// the payload raw so consumers can pick the struct by kind.
type NotificationRecord struct {
	Seq       uint64          `json:"seq"`
	Pool      string          `json:"pool"`
	Kind      string          `json:"kind"`
	Timestamp uint64          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}
