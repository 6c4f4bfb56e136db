// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/models"
)

// DefaultTopic is the topic alerts are published on. JetStream stream names
// cannot contain dots, so the topic doubles as the stream name.
const DefaultTopic = "security_alerts"

// PublisherSubscriber publishes each alert as a watermill message.
type PublisherSubscriber struct {
	publisher message.Publisher
	topic     string
}

// NewPublisherSubscriber publishes onto topic; an empty topic uses DefaultTopic.
func NewPublisherSubscriber(pub message.Publisher, topic string) *PublisherSubscriber {
	if topic == "" {
		topic = DefaultTopic
	}
	return &PublisherSubscriber{publisher: pub, topic: topic}
}

// Name implements Subscriber.
func (p *PublisherSubscriber) Name() string { return "publisher" }

// Topic returns the topic alerts are published on.
func (p *PublisherSubscriber) Topic() string { return p.topic }

// Notify implements Subscriber.
func (p *PublisherSubscriber) Notify(ctx context.Context, a models.Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)
	msg.Metadata.Set("alert_type", string(a.Type))
	msg.Metadata.Set("severity", string(a.Severity))
	msg.Metadata.Set(natsgo.MsgIdHdr, a.ID)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish alert %s: %w", a.ID, err)
	}
	return nil
}

// Close closes the underlying publisher.
func (p *PublisherSubscriber) Close() error {
	return p.publisher.Close()
}

// DecodeAlert decodes a message produced by PublisherSubscriber.
func DecodeAlert(msg *message.Message) (models.Alert, error) {
	var a models.Alert
	if err := json.Unmarshal(msg.Payload, &a); err != nil {
		return models.Alert{}, fmt.Errorf("decode alert: %w", err)
	}
	return a, nil
}

// NewGoChannelPublisher returns an in-process pub/sub. The returned value
// also implements message.Subscriber, which in-process consumers and tests use.
func NewGoChannelPublisher() *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewSlogLogger(logging.NewComponentSlogLogger("alert-pubsub")),
	)
}

// NATSConfig configures the JetStream alert publisher.
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// NewNATSPublisher connects a watermill JetStream publisher. Streams are
// provisioned on first publish and messages are deduplicated by alert ID.
func NewNATSPublisher(cfg NATSConfig) (message.Publisher, error) {
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}

	logger := watermill.NewSlogLogger(logging.NewComponentSlogLogger("alert-nats"))
	natsOpts := []natsgo.Option{
		natsgo.Name("sentinel-alerts"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Str("component", "alert-nats").Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("component", "alert-nats").Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			TrackMsgId:    false,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS alert publisher: %w", err)
	}
	return pub, nil
}
