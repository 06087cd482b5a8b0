package publisher

import (
	"context"

	"github.com/levenlabs/go-lflag"

	"github.com/facilog/facilog/pkg/types"
)

// Publisher pushes committed daily usage to an external consumer after a
// successful save. The building-automation system subscribes to these to
// trend utility usage without polling the logbook API.
type Publisher interface {
	// PublishUsage emits one message per channel that has a committed
	// usage value on the record.
	PublishUsage(ctx context.Context, subsystem string, rec types.DailyRecord) error
	Close()
}

// Configured returns a Publisher built from command-line flags. Without a
// broker address it returns a no-op publisher.
func Configured() Publisher {
	broker := lflag.String("mqtt-broker", "", "MQTT broker address (host:port), empty disables publishing")
	topicPrefix := lflag.String("mqtt-topic-prefix", "facilog", "MQTT topic prefix for usage messages")
	username := lflag.String("mqtt-username", "", "MQTT username")
	password := lflag.String("mqtt-password", "", "MQTT password")
	clientID := lflag.String("mqtt-client-id", "facilog", "MQTT client id")

	pub := &lazyPublisher{}
	lflag.Do(func() {
		if *broker == "" {
			pub.inner = Noop{}
			return
		}
		inner, err := NewMQTT(MQTTConfig{
			Broker:      *broker,
			TopicPrefix: *topicPrefix,
			Username:    *username,
			Password:    *password,
			ClientID:    *clientID,
		})
		if err != nil {
			panic(err)
		}
		pub.inner = inner
	})
	return pub
}

type lazyPublisher struct {
	inner Publisher
}

func (l *lazyPublisher) PublishUsage(ctx context.Context, subsystem string, rec types.DailyRecord) error {
	return l.inner.PublishUsage(ctx, subsystem, rec)
}

func (l *lazyPublisher) Close() {
	if l.inner != nil {
		l.inner.Close()
	}
}

// Noop discards every publish.
type Noop struct{}

func (Noop) PublishUsage(context.Context, string, types.DailyRecord) error { return nil }
func (Noop) Close()                                                        {}
