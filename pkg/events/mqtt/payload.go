package mqtt

import (
	"fmt"
	"time"

	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/multilocker/pkg/events"
	"github.com/robotalks/multilocker/pkg/roles"
)

func stringValue(s string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: s}}
}

func numberValue(n float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: n}}
}

// Encode marshals an event as a protobuf Struct.
func Encode(e events.Event) ([]byte, error) {
	msg := &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":    stringValue(e.ID),
		"type":  stringValue(string(e.Type)),
		"role":  stringValue(e.Role.String()),
		"slot":  numberValue(float64(e.Slot)),
		"score": numberValue(float64(e.Score)),
		"time":  stringValue(e.Time.UTC().Format(time.RFC3339Nano)),
	}}
	return proto.Marshal(msg)
}

// Decode unmarshals a payload produced by Encode.
func Decode(data []byte) (events.Event, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return events.Event{}, err
	}
	str := func(key string) string { return msg.Fields[key].GetStringValue() }
	e := events.Event{
		ID:    str("id"),
		Type:  events.Type(str("type")),
		Slot:  uint16(msg.Fields["slot"].GetNumberValue()),
		Score: uint16(msg.Fields["score"].GetNumberValue()),
		Role:  roles.Unassigned,
	}
	if name := str("role"); name != roles.Unassigned.String() {
		role, err := roles.ParseRole(name)
		if err != nil {
			return e, err
		}
		e.Role = role
	}
	t, err := time.Parse(time.RFC3339Nano, str("time"))
	if err != nil {
		return e, fmt.Errorf("event time: %w", err)
	}
	e.Time = t
	return e, nil
}
