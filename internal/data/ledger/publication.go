// Package ledger records event publications per listener so that deliveries
// interrupted by a crash can be found and resubmitted.
package ledger

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
)

type State string

const (
	StatePublished State = "PUBLISHED"
	StateCompleted State = "COMPLETED"
)

// Publication is one event handed to one listener.
type Publication struct {
	ID              uuid.UUID
	EventType       string
	SerializedEvent string
	ListenerID      string
	PublishedAt     time.Time
	// CompletedAt is nil until the listener finished successfully.
	CompletedAt *time.Time
}

func (p Publication) State() State {
	if p.CompletedAt == nil {
		return StatePublished
	}
	return StateCompleted
}

func (p Publication) IsCompleted() bool {
	return p.CompletedAt != nil
}

// EventTyper lets an event choose the type name recorded for it.
type EventTyper interface {
	EventType() string
}

// EventTypeOf returns the recorded type name of event: EventTyper when
// implemented, otherwise the package-qualified Go type name.
func EventTypeOf(event any) string {
	t := reflect.TypeOf(event)
	if t == nil {
		return ""
	}
	if typed, ok := event.(EventTyper); ok {
		if v := reflect.ValueOf(event); v.Kind() == reflect.Pointer && v.IsNil() {
			typed = reflect.New(t.Elem()).Interface().(EventTyper)
		}
		return typed.EventType()
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

type Serializer interface {
	Serialize(event any) (string, error)
}

type JSONSerializer struct{}

func (JSONSerializer) Serialize(event any) (string, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("serialize %T: %w", event, err)
	}
	return string(raw), nil
}

// Decode unmarshals the serialized payload of p into v.
func (p Publication) Decode(v any) error {
	if err := json.Unmarshal([]byte(p.SerializedEvent), v); err != nil {
		return fmt.Errorf("decode publication %s: %w", p.ID, err)
	}
	return nil
}
