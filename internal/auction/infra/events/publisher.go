// Package events ships committed auction state changes to NATS JetStream
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cristianortiz/vendorAuctions/internal/auction/domain"
	"github.com/cristianortiz/vendorAuctions/internal/shared/logger"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const subjectPrefix = "auction.events"

// Subject is where evt is published: auction.events.<type>.<auctionId>
func Subject(evt domain.Event) string {
	return fmt.Sprintf("%s.%s.%s", subjectPrefix, evt.Type, evt.AuctionID)
}

// message is the wire form of a domain.Event, money rendered with two decimals
type message struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	AuctionID  string    `json:"auction_id"`
	BidID      string    `json:"bid_id,omitempty"`
	BidderID   string    `json:"bidder_id,omitempty"`
	Amount     string    `json:"amount,omitempty"`
	Status     string    `json:"status"`
	EndsAt     time.Time `json:"ends_at"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Encode renders evt as the JSON payload published on the bus
func Encode(evt domain.Event) ([]byte, error) {
	msg := message{
		ID:         evt.ID.String(),
		Type:       evt.Type.String(),
		AuctionID:  evt.AuctionID.String(),
		Status:     string(evt.Status),
		EndsAt:     evt.EndsAt.UTC(),
		OccurredAt: evt.OccurredAt.UTC(),
	}
	if evt.BidID != nil {
		msg.BidID = evt.BidID.String()
	}
	if evt.BidderID != nil {
		msg.BidderID = evt.BidderID.String()
	}
	if evt.Amount != nil {
		msg.Amount = evt.Amount.StringFixed(domain.MoneyPlaces)
	}
	return json.Marshal(msg)
}

// JetStreamPublisher publishes auction events to a JetStream stream
type JetStreamPublisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// NewJetStreamPublisher connects to url and makes sure stream exists
func NewJetStreamPublisher(ctx context.Context, url, stream string) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("vendor-auctions"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        stream,
		Description: "Committed auction state changes",
		Subjects:    []string{subjectPrefix + ".>"},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Duplicates:  2 * time.Minute,
		Replicas:    1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create/update stream %s: %w", stream, err)
	}

	log.Info("JetStream publisher ready", zap.String("url", url), zap.String("stream", stream))
	return &JetStreamPublisher{nc: nc, js: js}, nil
}

// Publish sends evt, the event id doubles as the JetStream dedup id
func (p *JetStreamPublisher) Publish(ctx context.Context, evt domain.Event) error {
	data, err := Encode(evt)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", evt.Type, err)
	}
	subject := Subject(evt)
	ack, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(evt.ID.String()))
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	log.Debug("Published auction event",
		zap.String("subject", subject),
		zap.String("stream", ack.Stream),
		zap.Uint64("seq", ack.Sequence),
	)
	return nil
}

// Close drains the connection so in flight publishes finish
func (p *JetStreamPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		log.Warn("Failed to drain NATS connection", zap.Error(err))
	}
}

// NopPublisher drops every event, used when no bus is configured
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.Event) error {
	return nil
}
