// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/wayfinder/internal/config"
)

// Transport modes.
const (
	ModeMemory = "memory"
	ModeNATS   = "nats"
)

// Transport bundles the publisher and subscriber of one mode together
// with the embedded server backing them, if any.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber

	mode   string
	server *EmbeddedServer
	url    string
}

// NewTransport creates the transport selected by cfg.Mode.
//
// In memory mode a single GoChannel serves as publisher and subscriber;
// messages published while no handler is subscribed are dropped. In nats
// mode the stream is created or updated before the clients connect, and
// an embedded server is started first when configured.
func NewTransport(ctx context.Context, cfg *config.EventsConfig, logger watermill.LoggerAdapter) (*Transport, error) {
	switch cfg.Mode {
	case ModeMemory, "":
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger)
		return &Transport{Publisher: ch, Subscriber: ch, mode: ModeMemory}, nil
	case ModeNATS:
		return newNATSTransport(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown events mode %q", cfg.Mode)
	}
}

func newNATSTransport(ctx context.Context, cfg *config.EventsConfig, logger watermill.LoggerAdapter) (*Transport, error) {
	t := &Transport{mode: ModeNATS, url: cfg.URL}

	if cfg.EmbeddedServer {
		srv, err := NewEmbeddedServer(ServerConfig{
			Port:      embeddedPort(cfg.URL),
			StoreDir:  cfg.StoreDir,
			MaxMemory: cfg.MaxMemory,
			MaxStore:  cfg.MaxStore,
		})
		if err != nil {
			return nil, err
		}
		t.server = srv
		t.url = srv.ClientURL()
	}

	if _, err := EnsureStream(ctx, t.url, StreamConfig{
		Name:     cfg.StreamName,
		Subjects: []string{SubjectWildcard},
		MaxAge:   cfg.StreamRetention,
	}); err != nil {
		t.shutdownServer()
		return nil, err
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         t.url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		t.shutdownServer()
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}
	t.Publisher = pub

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              t.url,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     cfg.RouterCloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision:     false,
			DurablePrefix:     cfg.DurableName,
			DurableCalculator: durableForTopic,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.BindStream(cfg.StreamName),
				natsgo.DeliverNew(),
				natsgo.AckExplicit(),
			},
		},
	}, logger)
	if err != nil {
		_ = pub.Close()
		t.shutdownServer()
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}
	t.Subscriber = sub

	return t, nil
}

// durableForTopic names one JetStream consumer per topic. A durable
// consumer is bound to the subject it was created for, so the router's
// topics cannot share one.
func durableForTopic(prefix, topic string) string {
	return prefix + "_" + strings.ReplaceAll(topic, ".", "_")
}

// embeddedPort takes the port of the configured URL so clients of other
// processes can reach the embedded server at the advertised address.
func embeddedPort(rawURL string) int {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 4222
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return 4222
	}
	return port
}

// Mode returns memory or nats.
func (t *Transport) Mode() string {
	return t.mode
}

// URL returns the NATS URL clients connect to. Empty in memory mode.
func (t *Transport) URL() string {
	return t.url
}

// Close closes the clients and stops the embedded server.
func (t *Transport) Close() error {
	var errs []error
	if t.Publisher != nil {
		if err := t.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	// The GoChannel is both publisher and subscriber.
	if t.mode != ModeMemory && t.Subscriber != nil {
		if err := t.Subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}
	}
	t.shutdownServer()
	return errors.Join(errs...)
}

func (t *Transport) shutdownServer() {
	if t.server != nil {
		t.server.Shutdown()
		t.server = nil
	}
}
