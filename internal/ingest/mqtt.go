package ingest

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig holds the broker settings for the MQTT feed transport, used on
// deployments where the telemetry aggregator publishes batches to a broker
// instead of exposing a websocket.
type MQTTConfig struct {
	Broker          string
	Port            int
	Topic           string
	Username        string
	Password        string
	UseTLS          bool
	InsecureSkipTLS bool
}

// RunMQTT subscribes to the broker topic and routes every published batch
// through the same HandleMessage path as the websocket transport. Reconnects
// are delegated to the client's auto-reconnect; RunMQTT blocks until ctx is
// cancelled.
func (ing *Ingestor) RunMQTT(ctx context.Context, cfg MQTTConfig) error {
	opts := mqtt.NewClientOptions()

	protocol := "tcp"
	if cfg.UseTLS {
		protocol = "tls"
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: cfg.InsecureSkipTLS})
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", protocol, cfg.Broker, cfg.Port))
	opts.SetClientID(fmt.Sprintf("harborwatch-%d", time.Now().Unix()))
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(client mqtt.Client) {
		ing.deps.Logger.Info("MQTT connected", "topic", cfg.Topic)
		token := client.Subscribe(cfg.Topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			ing.HandleMessage(ctx, msg.Payload())
		})
		if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
			ing.deps.Logger.Warn("MQTT subscribe failed",
				"topic", cfg.Topic, "error", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		ing.deps.Logger.Warn("MQTT connection lost", "error", err)
		ing.reconnects.Add(ctx, 1)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("mqtt connect timeout")
	}
	if token.Error() != nil {
		return fmt.Errorf("mqtt connect failed: %w", token.Error())
	}

	<-ctx.Done()
	client.Disconnect(1000)
	return ctx.Err()
}
