package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"grow_controller/internal/logger"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/lestrrat-go/backoff"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttQoS            = byte(1)
	mqttQuiesceMillis  = 250
)

// MQTTConfig configures the optional command mirror.
type MQTTConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	TopicPrefix    string
	ConnectTimeout time.Duration
}

// Publisher is the subset of the paho client used by the mirror.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// mirrorClient is a connected broker client owned by the mirror.
type mirrorClient interface {
	Publisher
	Disconnect(quiesce uint)
}

// StartMQTTMirror connects to the broker in the background and installs the
// mirror on dst once connected, so an unreachable broker never holds up the
// caller. The returned channel closes after ctx is canceled and the client,
// if any, is disconnected.
func StartMQTTMirror(ctx context.Context, cfg MQTTConfig, dst *SwitchSink, log *logger.Logger) <-chan struct{} {
	connect := func(ctx context.Context) (mirrorClient, error) {
		return ConnectMQTT(ctx, cfg, log)
	}
	return runMirror(ctx, connect, dst, cfg, log)
}

func runMirror(ctx context.Context, connect func(context.Context) (mirrorClient, error), dst *SwitchSink, cfg MQTTConfig, log *logger.Logger) <-chan struct{} {
	log = logger.OrNop(log).Named("mqtt")
	done := make(chan struct{})
	go func() {
		defer close(done)
		client, err := connect(ctx)
		if err != nil {
			log.Warnw("mqtt_mirror_disabled", "broker", cfg.Broker, "err", err)
			return
		}
		dst.Set(NewMQTTMirror(client, cfg.TopicPrefix, log))
		log.Infow("mqtt_mirror_attached", "broker", cfg.Broker)

		<-ctx.Done()
		dst.Set(nil)
		client.Disconnect(mqttQuiesceMillis)
	}()
	return done
}

// MQTTMirror republishes actuator commands on a broker so other consumers
// (dashboards, relay boards) can follow channel state.
type MQTTMirror struct {
	client Publisher
	prefix string
	log    *logger.Logger
}

// NewMQTTMirror wraps an already connected publisher.
func NewMQTTMirror(client Publisher, prefix string, log *logger.Logger) *MQTTMirror {
	if prefix == "" {
		prefix = "grow/actuators"
	}
	return &MQTTMirror{client: client, prefix: strings.TrimSuffix(prefix, "/"), log: logger.OrNop(log).Named("mqtt")}
}

// ConnectMQTT dials the broker, retrying with exponential backoff until ctx expires.
func ConnectMQTT(ctx context.Context, cfg MQTTConfig, log *logger.Logger) (mqtt.Client, error) {
	log = logger.OrNop(log).Named("mqtt")
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = mqttConnectTimeout
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Infow("mqtt_connected", "broker", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warnw("mqtt_connection_lost", "broker", cfg.Broker, "err", err)
	})

	client := mqtt.NewClient(opts)
	e := backoff.ExecuteFunc(func(_ context.Context) error {
		token := client.Connect()
		if !token.WaitTimeout(cfg.ConnectTimeout) {
			return fmt.Errorf("connect to %s: timeout", cfg.Broker)
		}
		if err := token.Error(); err != nil {
			log.Warnw("mqtt_connect_failed", "broker", cfg.Broker, "err", err)
			return fmt.Errorf("connect to %s: %w", cfg.Broker, err)
		}
		return nil
	})

	if err := backoff.Retry(ctx, backoff.NewExponential(), e); err != nil {
		return nil, err
	}
	return client, nil
}

func (m *MQTTMirror) SendHardwareCommand(hardwareID string, value bool) {
	m.publish(m.prefix+"/"+hardwareID, hardwareCommand{HardwareID: hardwareID, Value: value})
}

func (m *MQTTMirror) SendFanPWM(id string, value int) {
	m.publish(m.prefix+"/fan/"+id, fanCommand{ID: id, Value: value})
}

func (m *MQTTMirror) publish(topic string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		m.log.Errorw("mqtt_encode_failed", "topic", topic, "err", err)
		return
	}
	// Fire and forget: the token is not awaited.
	m.client.Publish(topic, mqttQoS, true, b)
}
