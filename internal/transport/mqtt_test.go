package transport

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeMirrorClient struct {
	recordingPublisher
	disconnected chan struct{}
}

func (c *fakeMirrorClient) Disconnect(uint) { close(c.disconnected) }

func TestSwitchSink_DropsUntilSet(t *testing.T) {
	var sw SwitchSink
	sw.SendHardwareCommand("light", true) // nothing installed yet

	pub := &recordingPublisher{}
	sw.Set(NewMQTTMirror(pub, "", nil))
	sw.SendFanPWM("fan_pwm1", 40)
	sw.Set(nil)
	sw.SendHardwareCommand("light", false)

	if len(pub.topics) != 1 || pub.topics[0] != "grow/actuators/fan/fan_pwm1" {
		t.Fatalf("unexpected publishes %v", pub.topics)
	}
}

func TestRunMirror_AttachesAfterSlowConnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	client := &fakeMirrorClient{disconnected: make(chan struct{})}
	connect := func(context.Context) (mirrorClient, error) {
		<-release
		return client, nil
	}
	sw := &SwitchSink{}
	sinks := MultiSink{NewActuatorHub(NewStatusBoard(ActuatorLinkID), nil), sw}

	start := time.Now()
	done := runMirror(ctx, connect, sw, MQTTConfig{Broker: "tcp://broker:1883"}, nil)
	if time.Since(start) > time.Second {
		t.Fatalf("runMirror blocked the caller")
	}

	// commands keep flowing to the other sinks while the broker is pending
	sinks.SendHardwareCommand("heater_plus", true)
	if len(client.topics) != 0 {
		t.Fatalf("mirror must not receive commands before connecting")
	}

	close(release)
	deadline := time.Now().Add(2 * time.Second)
	for sw.current() == nil {
		if time.Now().After(deadline) {
			t.Fatalf("mirror never attached")
		}
		time.Sleep(5 * time.Millisecond)
	}
	sinks.SendHardwareCommand("heater_plus", false)
	if len(client.topics) != 1 || client.topics[0] != "grow/actuators/heater_plus" {
		t.Fatalf("unexpected publishes %v", client.topics)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("mirror goroutine did not stop")
	}
	select {
	case <-client.disconnected:
	default:
		t.Fatalf("client not disconnected on shutdown")
	}
	if sw.current() != nil {
		t.Fatalf("mirror still attached after shutdown")
	}
}

func TestRunMirror_ConnectFailureLeavesSinkEmpty(t *testing.T) {
	sw := &SwitchSink{}
	connect := func(context.Context) (mirrorClient, error) { return nil, errors.New("refused") }
	done := runMirror(context.Background(), connect, sw, MQTTConfig{}, nil)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("failed connect must end the goroutine")
	}
	if sw.current() != nil {
		t.Fatalf("no mirror expected after failed connect")
	}
}

func TestStartMQTTMirror_UnreachableBrokerDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sw := &SwitchSink{}

	start := time.Now()
	done := StartMQTTMirror(ctx, MQTTConfig{Broker: "tcp://127.0.0.1:1", ClientID: "test", ConnectTimeout: time.Second}, sw, nil)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("StartMQTTMirror blocked for %v", elapsed)
	}
	sw.SendHardwareCommand("light", true)

	cancel()
	select {
	case <-done:
	case <-time.After(15 * time.Second):
		t.Fatalf("connect retries ignore cancellation")
	}
	if sw.current() != nil {
		t.Fatalf("no mirror expected for an unreachable broker")
	}
}
