// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/thruster_manager/internal/health"
	"github.com/relabs-tech/thruster_manager/internal/mixer"
)

const publishTimeout = 2 * time.Second

// connectMQTT connects to broker as clientID and keeps reconnecting in the
// background. onConnect runs after every (re)connect so subscriptions
// survive broker restarts.
func connectMQTT(broker, clientID, component string, onConnect func(mqtt.Client)) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("%s: MQTT connection lost: %v", component, err)
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			log.Printf("%s: connected to MQTT broker at %s", component, broker)
			if onConnect != nil {
				onConnect(c)
			}
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10*time.Second) {
		return nil, fmt.Errorf("%s: timed out connecting to %s", component, broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%s: connect %s: %w", component, broker, err)
	}
	return client, nil
}

// subscribe wraps client.Subscribe with the component's log prefix.
func subscribe(client mqtt.Client, component, topic string, handler mqtt.MessageHandler) {
	token := client.Subscribe(topic, 0, handler)
	token.Wait()
	if err := token.Error(); err != nil {
		log.Printf("%s: subscribe %s: %v", component, topic, err)
		return
	}
	log.Printf("%s: subscribed to %s", component, topic)
}

// decodeTwist parses a velocity command payload.
func decodeTwist(payload []byte) (mixer.Twist, error) {
	var t mixer.Twist
	if err := json.Unmarshal(payload, &t); err != nil {
		return mixer.Twist{}, fmt.Errorf("velocity command: %w", err)
	}
	return t, nil
}

// decodeStatus parses a diagnostics payload.
func decodeStatus(payload []byte) (health.Status, error) {
	var st health.Status
	if err := json.Unmarshal(payload, &st); err != nil {
		return health.Status{}, fmt.Errorf("diagnostics: %w", err)
	}
	return st, nil
}

// commandHandler feeds every well-formed velocity command to submit.
func commandHandler(submit func(mixer.Twist)) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		t, err := decodeTwist(msg.Payload())
		if err != nil {
			log.Printf("manager: dropped command on %s: %v", msg.Topic(), err)
			return
		}
		submit(t)
	}
}

// statusHandler hands every well-formed diagnostics status to update.
func statusHandler(component string, update func(health.Status)) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		st, err := decodeStatus(msg.Payload())
		if err != nil {
			log.Printf("%s: %v", component, err)
			return
		}
		update(st)
	}
}

// mqttSink publishes diagnostics as JSON.
type mqttSink struct {
	client mqtt.Client
	topic  string
}

func (s *mqttSink) PublishDiagnostics(st health.Status) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal diagnostics: %w", err)
	}
	token := s.client.Publish(s.topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", s.topic)
	}
	return token.Error()
}
