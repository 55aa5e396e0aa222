package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher is the part of mqtt.Client the dispatcher needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTDispatcher publishes notifications as JSON, QoS 1, on
// <prefix>/<tenant>/managers or <prefix>/<tenant>/users/<id>.
type MQTTDispatcher struct {
	client  Publisher
	prefix  string
	timeout time.Duration
}

// NewMQTTDispatcher creates a dispatcher publishing through client.
func NewMQTTDispatcher(client Publisher, prefix string) *MQTTDispatcher {
	return &MQTTDispatcher{client: client, prefix: prefix, timeout: 5 * time.Second}
}

// ConnectMQTT connects to the broker with auto-reconnect enabled.
func ConnectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return client, nil
}

// Topic returns the topic n is published on.
func (d *MQTTDispatcher) Topic(n Notification) string {
	if n.ToManagers || n.UserID == nil {
		return fmt.Sprintf("%s/%s/managers", d.prefix, n.TenantID)
	}
	return fmt.Sprintf("%s/%s/users/%s", d.prefix, n.TenantID, n.UserID.Hex())
}

func (d *MQTTDispatcher) Dispatch(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	token := d.client.Publish(d.Topic(n), 1, false, payload)
	timeout := d.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("mqtt publish to %s timed out", d.Topic(n))
	}
	return token.Error()
}
