package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/codeduel/internal/duel/events"
)

// JetStreamConfig holds configuration for the duel event stream.
type JetStreamConfig struct {
	URL           string
	StreamName    string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
	MaxAge        time.Duration
	PublishWait   time.Duration
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:           nats.DefaultURL,
		StreamName:    "DUEL_EVENTS",
		SubjectPrefix: "duel.events",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		MaxAge:        24 * time.Hour,
		PublishWait:   5 * time.Second,
	}
}

// JetStreamPublisher pushes session lifecycle events to NATS JetStream for
// third-party observers such as leaderboard viewers. It implements
// duel.Publisher: publishing is asynchronous and best effort, so a slow or
// unreachable broker never blocks game-clock progression.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

func NewJetStreamPublisher(cfg JetStreamConfig) (*JetStreamPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, config: cfg}
	if err := p.ensureStream(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return p, nil
}

func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	sc := jetstream.StreamConfig{
		Name:        p.config.StreamName,
		Description: "Duel session event stream",
		Subjects:    []string{fmt.Sprintf("%s.>", p.config.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      p.config.MaxAge,
		Storage:     jetstream.FileStorage,
	}

	if _, err := p.js.Stream(ctx, p.config.StreamName); err != nil {
		if _, err = p.js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().Str("stream", p.config.StreamName).Msg("created JetStream stream")
	}
	return nil
}

// Publish implements duel.Publisher.
func (p *JetStreamPublisher) Publish(event *events.Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishWait)
		defer cancel()

		subject := fmt.Sprintf("%s.%s", p.config.SubjectPrefix, event.Type)
		data, err := json.Marshal(event)
		if err != nil {
			log.Error().Err(err).Msg("marshal event for publish")
			return
		}

		_, err = p.js.PublishMsg(ctx, &nats.Msg{
			Subject: subject,
			Data:    data,
			Header: nats.Header{
				"Event-Type": []string{string(event.Type)},
				"Event-ID":   []string{event.ID},
			},
		}, jetstream.WithMsgID(event.ID))
		if err != nil {
			log.Error().Err(err).Str("subject", subject).Str("event_id", event.ID).Msg("failed to publish event")
			return
		}
		log.Debug().Str("subject", subject).Str("event_id", event.ID).Msg("event published")
	}()
}

// Close shuts the NATS connection down.
func (p *JetStreamPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
