package ipc

import (
	"bytes"
	"encoding/binary"
	"net"
	"strings"
	"testing"
	"time"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	env, err := NewEnvelope(TypeHello, HelloMessage{Player: "north", Side: 2})
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteEnvelope(&buf, env); err != nil {
		t.Fatal(err)
	}
	if got := binary.LittleEndian.Uint32(buf.Bytes()[:4]); int(got) != buf.Len()-4 {
		t.Errorf("length prefix %d, payload %d", got, buf.Len()-4)
	}
	back, err := ReadEnvelope(&buf)
	if err != nil {
		t.Fatal(err)
	}
	var hello HelloMessage
	if err := back.Decode(&hello); err != nil {
		t.Fatal(err)
	}
	if back.Type != TypeHello || hello.Player != "north" || hello.Side != 2 {
		t.Errorf("got %s %+v", back.Type, hello)
	}
}

func TestReadEnvelopeRejectsBadLength(t *testing.T) {
	for _, n := range []uint32{0, MaxFrame + 1} {
		var buf bytes.Buffer
		binary.Write(&buf, binary.LittleEndian, n)
		if _, err := ReadEnvelope(&buf); err == nil || !strings.Contains(err.Error(), "invalid message length") {
			t.Errorf("length %d: err = %v", n, err)
		}
	}
}

func TestReadEnvelopeTruncated(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(10))
	buf.WriteString("{}")
	if _, err := ReadEnvelope(&buf); err == nil {
		t.Error("truncated payload should fail")
	}
}

func TestConnectionDispatch(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	client.SetDeadline(time.Now().Add(5 * time.Second))

	c := NewConnection(server, nil)
	c.RegisterHandler(TypeHello, func(env Envelope) (*Envelope, error) {
		var hello HelloMessage
		if err := env.Decode(&hello); err != nil {
			return nil, err
		}
		ack, err := NewEnvelope(TypeAck, AckMessage{Status: "ok", Side: hello.Side})
		return &ack, err
	})
	done := make(chan struct{})
	go func() {
		c.ReadLoop()
		close(done)
	}()

	send := func(msgType string, data any) {
		t.Helper()
		env, err := NewEnvelope(msgType, data)
		if err != nil {
			t.Fatal(err)
		}
		if err := WriteEnvelope(client, env); err != nil {
			t.Fatal(err)
		}
	}

	// Unknown types are dropped without a reply.
	send("bogus", struct{}{})
	send(TypeHello, HelloMessage{Player: "p", Side: 3})
	resp, err := ReadEnvelope(client)
	if err != nil {
		t.Fatal(err)
	}
	var ack AckMessage
	if err := resp.Decode(&ack); err != nil {
		t.Fatal(err)
	}
	if resp.Type != TypeAck || ack.Side != 3 {
		t.Errorf("reply %s %+v", resp.Type, ack)
	}

	// A handler failure comes back as an error message.
	send(TypeHello, "not an object")
	resp, err = ReadEnvelope(client)
	if err != nil {
		t.Fatal(err)
	}
	var msg ErrorMessage
	if err := resp.Decode(&msg); err != nil {
		t.Fatal(err)
	}
	if resp.Type != TypeError || msg.Type != TypeHello || msg.Error == "" {
		t.Errorf("error reply %s %+v", resp.Type, msg)
	}

	client.Close()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("read loop did not stop after close")
	}
}
