package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/facilog/facilog/pkg/log"
	"github.com/facilog/facilog/pkg/types"
)

// MQTTConfig holds the broker connection settings.
type MQTTConfig struct {
	Broker      string
	TopicPrefix string
	Username    string
	Password    string
	ClientID    string
}

// MQTT publishes committed usage over MQTT, one retained message per
// channel on <prefix>/<subsystem>/<channel>.
type MQTT struct {
	client      mqtt.Client
	topicPrefix string
}

// NewMQTT connects to the broker and returns the publisher.
func NewMQTT(cfg MQTTConfig) (*MQTT, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker address is required")
	}
	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = "facilog"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}
	return &MQTT{client: client, topicPrefix: prefix}, nil
}

type usageMessage struct {
	Date             string  `json:"date"`
	Usage            float64 `json:"usage"`
	MonthToDateTotal float64 `json:"monthToDateTotal"`
}

// PublishUsage emits one message per channel with a committed usage value.
// Channels with no usage (unentered or meter reset) are skipped.
func (m *MQTT) PublishUsage(ctx context.Context, subsystem string, rec types.DailyRecord) error {
	for id, ch := range rec.Channels {
		if ch.Usage == nil {
			continue
		}
		payload, err := json.Marshal(usageMessage{
			Date:             rec.Date,
			Usage:            *ch.Usage,
			MonthToDateTotal: ch.MonthToDateTotal,
		})
		if err != nil {
			return fmt.Errorf("encoding usage message: %w", err)
		}
		topic := fmt.Sprintf("%s/%s/%s", m.topicPrefix, subsystem, id)
		token := m.client.Publish(topic, 1, true, payload)
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("publishing %s: %w", topic, token.Error())
		}
		log.Ctx(ctx).DebugContext(ctx, "published usage",
			slog.String("topic", topic),
			slog.Float64("usage", *ch.Usage),
		)
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	if m.client != nil && m.client.IsConnected() {
		m.client.Disconnect(250)
	}
}
