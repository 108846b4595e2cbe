package network

import (
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/core-tools/edr-gen-go/pkg/errors"
	"github.com/core-tools/edr-gen-go/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnListener_EphemeralPort(t *testing.T) {
	listener, err := SpawnListener("127.0.0.1", 0)
	require.NoError(t, err)
	defer listener.Close()

	addr := listener.Addr().(*net.TCPAddr)
	assert.NotZero(t, addr.Port)
}

func TestSpawnListener_PortInUse(t *testing.T) {
	listener, err := SpawnListener("127.0.0.1", 0)
	require.NoError(t, err)
	defer listener.Close()

	port := listener.Addr().(*net.TCPAddr).Port
	_, err = SpawnListener("127.0.0.1", port)
	require.Error(t, err)
	assert.True(t, errors.IsNetworkError(err))
}

func TestConnectAndSend(t *testing.T) {
	listener, err := SpawnListener("127.0.0.1", 0)
	require.NoError(t, err)
	defer listener.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			received <- nil
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	port := uint16(listener.Addr().(*net.TCPAddr).Port)
	payload := []byte("telemetry probe")
	event, err := ConnectAndSend("127.0.0.1", port, payload)
	require.NoError(t, err)

	assert.Equal(t, events.EventKindNetwork, event.Kind)
	assert.Equal(t, events.ActivityNetConnect, event.Activity)
	assert.Equal(t, "127.0.0.1", event.DestAddr)
	assert.Equal(t, strconv.Itoa(int(port)), event.DestPort)
	assert.Equal(t, strconv.Itoa(len(payload)), event.BytesSent)
	assert.Equal(t, "tcp", event.Protocol)
	assert.NotEmpty(t, event.SourceAddr)
	assert.NotEmpty(t, event.SourcePort)

	select {
	case data := <-received:
		assert.Equal(t, payload, data)
	case <-time.After(5 * time.Second):
		t.Fatal("listener never received the payload")
	}
}

func TestConnectAndSend_PortZeroRejected(t *testing.T) {
	_, err := ConnectAndSend("127.0.0.1", 0, []byte("payload"))
	require.Error(t, err)
	assert.True(t, errors.IsNetworkError(err))
}

func TestConnectAndSend_PortZeroOpensNoSocket(t *testing.T) {
	listener, err := SpawnListener("127.0.0.1", 0)
	require.NoError(t, err)
	defer listener.Close()

	attempted := make(chan struct{}, 1)
	go func() {
		if conn, err := listener.Accept(); err == nil {
			attempted <- struct{}{}
			conn.Close()
		}
	}()

	_, err = ConnectAndSend("127.0.0.1", 0, []byte("payload"))
	require.Error(t, err)

	select {
	case <-attempted:
		t.Fatal("a connection was attempted despite the port 0 rejection")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestConnectAndSend_NoListener(t *testing.T) {
	// bind and immediately release a port so nothing is listening on it
	listener, err := SpawnListener("127.0.0.1", 0)
	require.NoError(t, err)
	port := uint16(listener.Addr().(*net.TCPAddr).Port)
	require.NoError(t, listener.Close())

	_, err = ConnectAndSend("127.0.0.1", port, []byte("payload"))
	require.Error(t, err)
	assert.True(t, errors.IsNetworkError(err))
}

func TestLoopbackSelfTest_RoundTrip(t *testing.T) {
	payload := []byte("loopback self test payload")

	event, selfTest, err := LoopbackSelfTest(payload)
	require.NoError(t, err)
	require.NotNil(t, selfTest)

	received, err := selfTest.Wait(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, payload, received)

	assert.Equal(t, "127.0.0.1", event.DestAddr)
	assert.Equal(t, strconv.Itoa(len(payload)), event.BytesSent)
}

func TestLoopbackSelfTest_EmptyPayload(t *testing.T) {
	event, selfTest, err := LoopbackSelfTest(nil)
	require.NoError(t, err)

	received, err := selfTest.Wait(5 * time.Second)
	require.NoError(t, err)
	assert.Empty(t, received)
	assert.Equal(t, "0", event.BytesSent)
}

func TestSelfTest_WaitTimeout(t *testing.T) {
	selfTest := &SelfTest{received: make(chan []byte, 1)}

	_, err := selfTest.Wait(50 * time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.IsNetworkError(err))
}
