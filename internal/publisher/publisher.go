// internal/publisher/publisher.go
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tamzrod/erv-bridge/internal/metrics"
	"github.com/tamzrod/erv-bridge/internal/poller"
	"github.com/tamzrod/erv-bridge/internal/status"
)

// Source provides the events to publish.
type Source interface {
	Subscribe(buffer int) (<-chan poller.Event, func())
	Link() status.Link
}

// Controller executes commands received over MQTT.
type Controller interface {
	SetFanSpeed(ctx context.Context, side poller.Side, pct int) error
	SetSystemPower(ctx context.Context, on bool) error
}

// Config holds MQTT sink configuration.
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
	Commands    bool

	ConnectTimeout time.Duration
	CommandTimeout time.Duration
}

// Publisher mirrors service events to an MQTT broker and optionally
// accepts control commands from it.
type Publisher struct {
	cfg    Config
	topics Topics
	src    Source
	ctl    Controller
	log    zerolog.Logger

	newClient func(*mqtt.ClientOptions) mqtt.Client
	client    mqtt.Client
	ctx       context.Context
}

func New(cfg Config, src Source, ctl Controller, log zerolog.Logger) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("publisher: broker required")
	}
	if cfg.Commands && ctl == nil {
		return nil, errors.New("publisher: commands enabled without a controller")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "ervd-" + uuid.NewString()[:8]
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "erv"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 5 * time.Second
	}

	return &Publisher{
		cfg:       cfg,
		topics:    NewTopics(cfg.TopicPrefix),
		src:       src,
		ctl:       ctl,
		log:       log.With().Str("component", "mqtt").Str("broker", cfg.Broker).Logger(),
		newClient: mqtt.NewClient,
	}, nil
}

func (p *Publisher) options() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.cfg.Broker)
	opts.SetClientID(p.cfg.ClientID)
	if p.cfg.Username != "" {
		opts.SetUsername(p.cfg.Username)
		opts.SetPassword(p.cfg.Password)
	}
	opts.SetConnectTimeout(p.cfg.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetOrderMatters(false)
	opts.SetWill(p.topics.Bridge, "offline", p.cfg.QoS, true)

	opts.SetOnConnectHandler(func(c mqtt.Client) {
		p.log.Info().Msg("mqtt connected")
		p.publish(c, p.topics.Bridge, true, "online")
		p.publish(c, p.topics.Connected, true, strconv.FormatBool(p.src.Link().Connected))
		if p.cfg.Commands {
			p.subscribe(c)
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.log.Warn().Err(err).Msg("mqtt connection lost")
	})
	return opts
}

// Run connects and publishes until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	p.ctx = ctx
	p.client = p.newClient(p.options())

	token := p.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publisher: connect %s: %w", p.cfg.Broker, err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	events, cancel := p.src.Subscribe(64)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			p.publish(p.client, p.topics.Bridge, true, "offline")
			p.client.Disconnect(250)
			return nil
		case ev, ok := <-events:
			if !ok {
				p.publish(p.client, p.topics.Bridge, true, "offline")
				p.client.Disconnect(250)
				return nil
			}
			p.forward(ev)
		}
	}
}

func (p *Publisher) forward(ev poller.Event) {
	switch ev.Kind {
	case poller.SnapshotEvent:
		payload, err := json.Marshal(ev.Snapshot)
		if err != nil {
			p.log.Error().Err(err).Msg("encode snapshot")
			return
		}
		p.publish(p.client, p.topics.Telemetry, false, payload)
	case poller.LinkEvent:
		p.publish(p.client, p.topics.Connected, true, strconv.FormatBool(ev.Link.Connected))
	}
}

func (p *Publisher) publish(c mqtt.Client, topic string, retained bool, payload any) {
	token := c.Publish(topic, p.cfg.QoS, retained, payload)
	// QoS 0 completes immediately; higher levels are not waited on.
	go func() {
		if token.WaitTimeout(p.cfg.ConnectTimeout) && token.Error() != nil {
			p.log.Warn().Err(token.Error()).Str("topic", topic).Msg("publish failed")
		}
	}()
}

func (p *Publisher) subscribe(c mqtt.Client) {
	for _, topic := range p.topics.Commands() {
		token := c.Subscribe(topic, p.cfg.QoS, p.handleMessage)
		if token.WaitTimeout(p.cfg.ConnectTimeout) && token.Error() != nil {
			p.log.Error().Err(token.Error()).Str("topic", topic).Msg("subscribe failed")
		}
	}
}

func (p *Publisher) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	cmd, err := p.topics.parseCommand(msg.Topic(), msg.Payload())
	if err != nil {
		p.log.Warn().Err(err).Msg("ignoring command")
		metrics.Commands.WithLabelValues("mqtt", metrics.ResultFailed).Inc()
		return
	}
	p.execute(cmd)
}

func (p *Publisher) execute(cmd command) {
	parent := p.ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, p.cfg.CommandTimeout)
	defer cancel()

	var err error
	switch cmd.kind {
	case cmdFan:
		err = p.ctl.SetFanSpeed(ctx, cmd.side, cmd.pct)
	case cmdPower:
		err = p.ctl.SetSystemPower(ctx, cmd.on)
	}

	if err != nil {
		p.log.Warn().Err(err).Stringer("command", cmd).Msg("mqtt command failed")
		return
	}
	p.log.Info().Stringer("command", cmd).Msg("mqtt command applied")
}
