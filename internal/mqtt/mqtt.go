// Package mqtt publishes arrival updates to the broker so companion surfaces
// (widgets, displays) can follow the watched stop without polling the API.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/minggliangg/my-bus-assistant-sub001/internal/config"
	"github.com/minggliangg/my-bus-assistant-sub001/internal/modules/arrivals/types"
)

// PublisherMetrics is the subset of the metrics collector the publisher
// reports to.
type PublisherMetrics interface {
	MQTTPublishedInc()
	MQTTPublishErrInc()
	MQTTSetConnected(connected bool)
}

type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	logger      *slog.Logger
	metrics     PublisherMetrics
	mu          sync.RWMutex
	connected   bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewPublisher configures the broker connection. metrics may be nil.
func NewPublisher(cfg config.Config, logger *slog.Logger, metrics PublisherMetrics) *Publisher {
	p := &Publisher{
		topicPrefix: cfg.MQTTTopicPrefix,
		logger:      logger,
		metrics:     metrics,
		stopCh:      make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)

	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Callbacks keep internal state accurate
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		p.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = mqtt.NewClient(opts)
	return p
}

// Connect establishes the broker connection. It waits for the initial
// connection and respects ctx and Disconnect().
func (p *Publisher) Connect(ctx context.Context) error {
	// Fail fast if already stopped.
	select {
	case <-p.stopCh:
		return fmt.Errorf("publisher stopped")
	default:
	}

	if p.IsConnected() {
		return nil
	}

	// With ConnectRetry(true) the attempt may keep retrying internally.
	token := p.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return fmt.Errorf("publisher stopped")
		default:
		}
	}
}

// PublishArrivals publishes an arrivals snapshot to the per-stop topic,
// retained so late subscribers see the latest state immediately.
func (p *Publisher) PublishArrivals(snapshot types.StopArrivals) error {
	if !p.IsConnected() {
		return fmt.Errorf("mqtt publisher not connected")
	}

	topic := fmt.Sprintf("%s/arrivals/%s", p.topicPrefix, snapshot.BusStopCode)

	if snapshot.RetrievedAt.IsZero() {
		snapshot.RetrievedAt = time.Now()
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal arrivals: %w", err)
	}

	token := p.client.Publish(topic, 1, true, data)
	if !token.WaitTimeout(5 * time.Second) {
		if p.metrics != nil {
			p.metrics.MQTTPublishErrInc()
		}
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if token.Error() != nil {
		if p.metrics != nil {
			p.metrics.MQTTPublishErrInc()
		}
		p.logger.Error("failed to publish arrivals", "topic", topic, "error", token.Error())
		return fmt.Errorf("publish arrivals: %w", token.Error())
	}

	if p.metrics != nil {
		p.metrics.MQTTPublishedInc()
	}
	p.logger.Debug("published arrivals", "topic", topic, "busStopCode", snapshot.BusStopCode)
	return nil
}

// IsConnected returns whether the publisher is connected to the broker.
func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect stops the publisher and closes the broker connection.
// Idempotent; after Disconnect, Connect() returns "publisher stopped".
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })

	// Paho Disconnect quiesces in-flight work for the given ms.
	if p.client != nil {
		p.client.Disconnect(250)
	}

	p.setConnected(false)
	p.logger.Info("mqtt disconnected")
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
	if p.metrics != nil {
		p.metrics.MQTTSetConnected(v)
	}
}
