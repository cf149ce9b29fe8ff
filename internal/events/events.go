// Package events publishes maintenance and vehicle lifecycle notifications.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ukydev/car-maintenance/internal/models"
)

// Event types
const (
	TaskCreated    = "task.created"
	TaskUpdated    = "task.updated"
	TaskCompleted  = "task.completed"
	VehicleCreated = "vehicle.created"
)

// Event is a notification about a task or vehicle change.
type Event struct {
	Type        string            `json:"type"`
	VehicleID   string            `json:"vehicle_id"`
	OwnerID     string            `json:"owner_id,omitempty"`
	TaskID      string            `json:"task_id,omitempty"`
	TaskType    models.TaskType   `json:"task_type,omitempty"`
	Status      models.TaskStatus `json:"status,omitempty"`
	DueDate     *time.Time        `json:"due_date,omitempty"`
	NextMileage *int              `json:"next_mileage,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// TaskEvent builds an Event from a stored task.
func TaskEvent(eventType string, task models.MaintenanceTask) Event {
	return Event{
		Type:        eventType,
		VehicleID:   task.VehicleID,
		TaskID:      task.ID,
		TaskType:    task.TaskType,
		Status:      task.Status,
		DueDate:     task.DueDate,
		NextMileage: task.NextMileage,
		OccurredAt:  time.Now(),
	}
}

// VehicleEvent builds an Event from a stored vehicle.
func VehicleEvent(eventType string, vehicle models.Vehicle) Event {
	return Event{
		Type:       eventType,
		VehicleID:  vehicle.ID,
		OwnerID:    vehicle.OwnerID,
		OccurredAt: time.Now(),
	}
}

// Publisher delivers events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }

// MQTTConfig holds MQTT publisher settings.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte
}

// MQTTPublisher publishes events as JSON to <prefix>/<vehicle id>/<event type>.
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
	qos    byte
}

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect error: %w", err)
	}
	return newMQTTPublisher(client, cfg), nil
}

func newMQTTPublisher(client mqtt.Client, cfg MQTTConfig) *MQTTPublisher {
	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = "maintenance"
	}
	return &MQTTPublisher{client: client, prefix: prefix, qos: cfg.QoS}
}

// Topic returns the topic an event is published on.
func (p *MQTTPublisher) Topic(event Event) string {
	return p.prefix + "/" + event.VehicleID + "/" + event.Type
}

func (p *MQTTPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	token := p.client.Publish(p.Topic(event), p.qos, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

