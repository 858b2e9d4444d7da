// Package events carries the risk engine's observable side effects out to
// collaborators. Publishing is fire-and-forget: a failed publish is logged by
// the caller and never fails the operation that produced the event.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type identifies the kind of event.
type Type string

const (
	TypeTokenAdded            Type = "oracle.token_added"
	TypeTokenRemoved          Type = "oracle.token_removed"
	TypePriceUpdated          Type = "oracle.price_updated"
	TypeOracleAuthorized      Type = "oracle.writer_authorized"
	TypeOracleDeauthorized    Type = "oracle.writer_deauthorized"
	TypeAssetRiskUpdated      Type = "risk.asset_updated"
	TypePositionRiskAlert     Type = "risk.position_alert"
	TypeRiskThresholdBreached Type = "risk.threshold_breached"
	TypeEmergencyStop         Type = "risk.emergency_stop"
	TypeAssessorAuthorized    Type = "risk.assessor_authorized"
	TypeAssessorDeauthorized  Type = "risk.assessor_deauthorized"
	TypeIntervalChanged       Type = "risk.update_interval_changed"
)

// Event is the envelope published for every observable side effect.
type Event struct {
	ID        string                 `json:"id"`
	Type      Type                   `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	User      string                 `json:"user,omitempty"`
	Token     string                 `json:"token,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// New builds an event envelope with a fresh ID.
func New(typ Type, user, token string, data map[string]interface{}) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      typ,
		Timestamp: time.Now().UTC(),
		User:      user,
		Token:     token,
		Data:      data,
	}
}

// Key returns the partitioning key for the event.
func (e Event) Key() string {
	switch {
	case e.User != "" && e.Token != "":
		return e.User + ":" + e.Token
	case e.User != "":
		return e.User
	case e.Token != "":
		return e.Token
	default:
		return "system"
	}
}

// Publisher delivers events to a side channel.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher discards all events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
