// Package messaging pushes applied transaction summaries to live subscribers.
package messaging

import (
	"time"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/changes"
)

// ChangeEvent is the message sent to subscribers after a transaction is applied.
type ChangeEvent struct {
	TransactionID string                        `json:"transactionId"`
	AuthorID      string                        `json:"authorId"`
	Kinds         []string                      `json:"kinds"`
	ClientInfo    map[string][]changes.ClientInfo `json:"clientInfo,omitempty"`
	TouchedURLs   []string                      `json:"touchedUrls,omitempty"`
	Created       time.Time                     `json:"created"`
}

// Broadcaster defines the publishing side used by the transaction service.
type Broadcaster interface {
	Broadcast(event *ChangeEvent)
}
