// Package position holds the truck position record carried on the input and
// output topics, together with its schema-checked JSON codec.
package position

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// NormalEvent is the EVENTTYPE of an ordinary, non-dangerous position.
const NormalEvent = "Normal"

// TruckPosition is one vehicle position event. Values are read-only once decoded.
type TruckPosition struct {
	TS        string  `json:"TS"`
	TruckID   string  `json:"TRUCKID"`
	DriverID  int64   `json:"DRIVERID"`
	RouteID   int64   `json:"ROUTEID"`
	EventType string  `json:"EVENTTYPE"`
	Latitude  float64 `json:"LATITUDE"`
	Longitude float64 `json:"LONGITUDE"`
}

// Dangerous reports whether the event must be forwarded downstream.
func (p TruckPosition) Dangerous() bool {
	return p.EventType != NormalEvent
}

// DecodeError describes why a payload does not match the TruckPosition schema.
// Field is empty when the payload as a whole is unusable.
type DecodeError struct {
	Field  string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return "position: " + e.Reason
	}
	return fmt.Sprintf("position: field %s: %s", e.Field, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode parses a JSON payload into a TruckPosition. Keys are matched exactly
// (encoding/json struct decoding would fold case), every field is required and
// unknown keys are ignored. Invalid UTF-8 is rejected rather than replaced.
func Decode(data []byte) (TruckPosition, error) {
	var p TruckPosition
	if !utf8.Valid(data) {
		return p, &DecodeError{Reason: "invalid utf-8"}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return p, &DecodeError{Reason: "invalid json object", Err: err}
	}
	if raw == nil {
		return p, &DecodeError{Reason: "payload is null"}
	}

	fields := []struct {
		key string
		dst any
	}{
		{"TS", &p.TS},
		{"TRUCKID", &p.TruckID},
		{"DRIVERID", &p.DriverID},
		{"ROUTEID", &p.RouteID},
		{"EVENTTYPE", &p.EventType},
		{"LATITUDE", &p.Latitude},
		{"LONGITUDE", &p.Longitude},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok || string(v) == "null" {
			return TruckPosition{}, &DecodeError{Field: f.key, Reason: "missing"}
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return TruckPosition{}, &DecodeError{Field: f.key, Reason: fmt.Sprintf("want %s", kind(f.dst)), Err: err}
		}
	}

	if p.TruckID == "" {
		return TruckPosition{}, &DecodeError{Field: "TRUCKID", Reason: "empty"}
	}
	return p, nil
}

// Encode serializes p with the same keys Decode accepts.
func Encode(p TruckPosition) ([]byte, error) {
	return json.Marshal(p)
}

func kind(dst any) string {
	switch dst.(type) {
	case *string:
		return "string"
	case *int64:
		return "integer"
	case *float64:
		return "number"
	default:
		return fmt.Sprintf("%T", dst)
	}
}
