// Package relay subscribes to the pe32 MQTT topic tree and persists
// incoming measurements through the hub service.
//
// Topics have the shape pe32/<namespace>/<measure>/<deviceIdentifier>
// with a plain-text payload, e.g.
//
//	pe32/ossohq/temperature/EUI48:C0:49:EF:D0:1F:38 -> "21.53"
package relay

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	nuts "github.com/vaudience/go-nuts"

	"github.com/ossohq/pe32-hub/internal/config"
	"github.com/ossohq/pe32-hub/internal/errors"
	"github.com/ossohq/pe32-hub/internal/hubservice"
	"github.com/ossohq/pe32-hub/internal/models"
)

// measure that carries the device firmware version instead of telemetry
const buildVersionMeasure = "buildversion"

// Relay consumes pe32 MQTT messages and writes them to the store
type Relay struct {
	config config.MQTTConfig
	hub    *hubservice.HubService

	mu             sync.Mutex
	internalClient mqtt.Client

	// now is swappable for tests
	now func() time.Time
}

// New creates a relay bound to the given hub service
func New(cfg config.MQTTConfig, hub *hubservice.HubService) *Relay {
	return &Relay{
		config: cfg,
		hub:    hub,
		now:    time.Now,
	}
}

// Start connects to the broker and subscribes. Subscribing happens in the
// on-connect handler so a reconnect renews the subscription.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(r.config.Broker)
	opts.SetClientID(r.config.ClientID)
	opts.SetUsername(r.config.Username)
	opts.SetPassword(r.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(r.onConnect)
	opts.SetConnectionLostHandler(r.onConnectionLost)

	r.internalClient = mqtt.NewClient(opts)

	token := r.internalClient.Connect()
	if !token.WaitTimeout(r.config.ConnectTimeout) {
		return fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connection error: %w", err)
	}
	return nil
}

// Stop disconnects from the broker
func (r *Relay) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.internalClient != nil && r.internalClient.IsConnected() {
		r.internalClient.Disconnect(uint(r.config.DisconnectTimeout.Milliseconds()))
	}
}

// IsConnected reports whether the broker connection is up
func (r *Relay) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.internalClient != nil && r.internalClient.IsConnected()
}

func (r *Relay) onConnect(client mqtt.Client) {
	nuts.L.Infof("[Relay] Connected to %s, subscribing to %s", r.config.Broker, r.config.Topic)
	token := client.Subscribe(r.config.Topic, 0, r.onMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		nuts.L.Errorf("[Relay] Subscribe failed: %v", err)
	}
}

func (r *Relay) onConnectionLost(_ mqtt.Client, err error) {
	nuts.L.Warnf("[Relay] Connection lost: %v", err)
}

// onMessage handles one broker message. Per-message failures are logged
// and swallowed; a bad payload must never take the relay down.
func (r *Relay) onMessage(_ mqtt.Client, msg mqtt.Message) {
	ctx := context.Background()
	if err := r.handlePayload(ctx, msg.Topic(), string(msg.Payload())); err != nil {
		if errors.IsConflict(err) {
			// Same (time, label) window delivered twice; first write wins.
			nuts.L.Infof("[Relay] Duplicate sample on %s: %v", msg.Topic(), err)
			return
		}
		nuts.L.Errorf("[Relay] %s -> %q: %v", msg.Topic(), msg.Payload(), err)
	}
}

func (r *Relay) handlePayload(ctx context.Context, topic, payload string) error {
	namespace, measure, identifier, err := parseTopic(topic)
	if err != nil {
		return err
	}
	if namespace != r.config.Namespace {
		nuts.L.Infof("[Relay] Ignoring foreign namespace %s", namespace)
		return nil
	}
	return r.handleMeasure(ctx, measure, identifier, payload)
}

func (r *Relay) handleMeasure(ctx context.Context, measure, identifier, payload string) error {
	if measure == buildVersionMeasure {
		return r.hub.CheckIn(ctx, identifier, payload)
	}

	metric, ok := models.MetricByName(measure)
	if !ok {
		nuts.L.Infof("[Relay] Ignoring unknown measure %s from %s", measure, identifier)
		return nil
	}

	labelID, err := r.hub.ResolveLabel(ctx, identifier, "")
	if errors.IsNotFound(err) {
		nuts.L.Infof("[Relay] Ignoring %s from unlabeled device %s", measure, identifier)
		return nil
	}
	if err != nil {
		return err
	}

	// Samples are bucketed to the minute; one window per label per metric.
	ts := r.now().UTC().Truncate(time.Minute)

	if !metric.Numeric() {
		return r.hub.RecordComfortDescriptor(ctx, ts, labelID, payload)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(payload), 64)
	if err != nil {
		return errors.NewValidationError("payload is not numeric: "+payload, err)
	}
	// A live reading is a degenerate rollup: low = avg = high.
	return r.hub.RecordSample(ctx, metric.Name, ts, labelID, &value, &value, &value)
}

// parseTopic splits pe32/<namespace>/<measure>/<identifier>
func parseTopic(topic string) (namespace, measure, identifier string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 {
		return "", "", "", errors.NewValidationError("cannot handle topic "+topic, nil)
	}
	if parts[0] != "pe32" {
		return "", "", "", errors.NewValidationError("unexpected topic prefix "+parts[0], nil)
	}
	return parts[1], parts[2], parts[3], nil
}
