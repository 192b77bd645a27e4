package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Registry maps event type names to their payload Go types so stored
// payloads can be decoded back into strongly typed values.
type Registry struct {
	types map[string]reflect.Type
}

func NewRegistry() *Registry {
	return &Registry{types: make(map[string]reflect.Type)}
}

// Register associates an event type name with the concrete payload type of
// prototype. Registering the same name twice panics: it is a wiring bug.
func (r *Registry) Register(eventType string, prototype any) {
	if _, exists := r.types[eventType]; exists {
		panic(fmt.Sprintf("event type %q registered twice", eventType))
	}
	t := reflect.TypeOf(prototype)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	r.types[eventType] = t
}

// Known reports whether an event type has a registered payload type.
func (r *Registry) Known(eventType string) bool {
	_, ok := r.types[eventType]
	return ok
}

// Types returns every registered event type name, sorted.
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decode unmarshals raw into a new value of the payload type registered for
// eventType. The returned value is a pointer to the payload struct.
func (r *Registry) Decode(eventType string, raw []byte) (any, error) {
	t, ok := r.types[eventType]
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
	payload := reflect.New(t).Interface()
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
	}
	return payload, nil
}
