package mqtt

import (
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/multilocker/pkg/events"
	"github.com/robotalks/multilocker/pkg/roles"
)

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeToken struct {
	done bool
	err  error
}

func (t *fakeToken) Wait() bool                       { return t.done }
func (t *fakeToken) WaitTimeout(d time.Duration) bool { return t.done }
func (t *fakeToken) Error() error                     { return t.err }

type fakeClient struct {
	msgs  []published
	token paho.Token
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.msgs = append(c.msgs, published{topic: topic, qos: qos, payload: payload.([]byte)})
	if c.token != nil {
		return c.token
	}
	return &paho.DummyToken{}
}

func TestPublisherEmit(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, "locker/", "dev1")
	e := events.New(events.Enrolled, roles.Member, 10, time.Unix(1600000000, 5).UTC())
	require.NoError(t, p.Emit(e))
	require.Len(t, client.msgs, 1)
	require.Equal(t, "locker/dev1/events/enrolled", client.msgs[0].topic)

	decoded, err := Decode(client.msgs[0].payload)
	require.NoError(t, err)
	require.Equal(t, e, decoded)
}

func TestPublisherErrors(t *testing.T) {
	client := &fakeClient{token: &fakeToken{}}
	p := NewPublisher(client, "", "dev1")
	err := p.Emit(events.New(events.Denied, roles.Guest, 0, time.Now()))
	require.ErrorIs(t, err, ErrTimeout)

	boom := errors.New("boom")
	client.token = &fakeToken{done: true, err: boom}
	require.ErrorIs(t, p.Emit(events.New(events.Cleared, roles.Unassigned, 0, time.Now())), boom)
	require.Equal(t, "dev1/events/cleared", client.msgs[1].topic)
}

func TestDecodeUnassignedRole(t *testing.T) {
	e := events.New(events.Cleared, roles.Unassigned, 0, time.Unix(10, 0).UTC())
	data, err := Encode(e)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, roles.Unassigned, decoded.Role)
}

func TestClientOptionsFromURL(t *testing.T) {
	opts, prefix, err := ClientOptionsFromURL("mqtt://u:p@broker:1883/site/lockers/?client-id=abc")
	require.NoError(t, err)
	require.Equal(t, "site/lockers/", prefix)
	require.Equal(t, "abc", opts.ClientID)
	require.Equal(t, "u", opts.Username)
	require.Equal(t, "p", opts.Password)
	require.Len(t, opts.Servers, 1)
	require.Equal(t, "tcp://broker:1883", opts.Servers[0].String())
}
