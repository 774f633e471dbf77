package app

import (
	"encoding/json"
	"testing"

	"github.com/relabs-tech/thruster_manager/internal/health"
	"github.com/relabs-tech/thruster_manager/internal/mixer"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestDecodeTwist(t *testing.T) {
	got, err := decodeTwist([]byte(`{"linear":{"x":0.5,"y":0,"z":-0.1},"angular":{"x":0,"y":0,"z":0.25}}`))
	if err != nil {
		t.Fatalf("decodeTwist: %v", err)
	}
	want := mixer.Twist{
		Linear:  mixer.Vector3{X: 0.5, Z: -0.1},
		Angular: mixer.Vector3{Z: 0.25},
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	if _, err := decodeTwist([]byte(`{"linear":`)); err == nil {
		t.Fatalf("expected error for truncated payload")
	}
}

func TestCommandHandlerSubmitsOnlyValidCommands(t *testing.T) {
	var got []mixer.Twist
	h := commandHandler(func(tw mixer.Twist) { got = append(got, tw) })

	h(nil, fakeMessage{topic: "sub/thrustercommands", payload: []byte(`not json`)})
	h(nil, fakeMessage{topic: "sub/thrustercommands", payload: []byte(`{"linear":{"x":1}}`)})

	if len(got) != 1 || got[0].Linear.X != 1 {
		t.Fatalf("submitted %+v", got)
	}
}

func TestStatusHandlerDecodesDiagnostics(t *testing.T) {
	in := health.Status{
		Name:       health.StatusName,
		HardwareID: health.StatusName,
		Level:      health.Error,
		Message:    "Thruster L not alive",
		Values:     []health.KeyValue{{Key: "Thruster L Alive", Value: "false"}},
	}
	payload, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got []health.Status
	h := statusHandler("test", func(st health.Status) { got = append(got, st) })
	h(nil, fakeMessage{topic: "sub/diagnostics", payload: []byte(`{`)})
	h(nil, fakeMessage{topic: "sub/diagnostics", payload: payload})

	if len(got) != 1 {
		t.Fatalf("got %d statuses, want 1", len(got))
	}
	if got[0].Level != health.Error || got[0].Message != in.Message || len(got[0].Values) != 1 {
		t.Fatalf("decoded %+v", got[0])
	}
}
