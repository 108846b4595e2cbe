package network

import (
	"io"
	"net"
	"strconv"
	"time"

	"github.com/core-tools/edr-gen-go/pkg/errors"
	"github.com/core-tools/edr-gen-go/pkg/events"
)

const protocolTCP = "tcp"

// SpawnListener binds a TCP listener on the given interface and port.
// Port 0 asks the OS for an ephemeral port.
func SpawnListener(iface string, port int) (net.Listener, error) {
	listener, err := net.Listen(protocolTCP, net.JoinHostPort(iface, strconv.Itoa(port)))
	if err != nil {
		return nil, errors.NewNetworkError("unable to bind listener", err).
			WithContext("interface", iface).
			WithContext("port", port)
	}
	return listener, nil
}

// ConnectAndSend opens a TCP connection to host:port, writes the full
// payload, and closes the connection. Port 0 is rejected before any
// connection attempt is made.
func ConnectAndSend(host string, port uint16, payload []byte) (events.Event, error) {
	if port == 0 {
		return events.Event{}, errors.NewNetworkError("port 0 is not a valid connection target", nil).
			WithContext("host", host)
	}

	target := net.JoinHostPort(host, strconv.Itoa(int(port)))
	conn, err := net.Dial(protocolTCP, target)
	if err != nil {
		return events.Event{}, errors.NewNetworkError("unable to connect", err).WithContext("target", target)
	}
	defer conn.Close()

	sent, err := conn.Write(payload)
	if err != nil {
		return events.Event{}, errors.NewNetworkError("unable to write", err).WithContext("target", target)
	}

	event := events.Event{
		Kind:      events.EventKindNetwork,
		Timestamp: events.NewTimestamp(),
		Activity:  events.ActivityNetConnect,
		DestAddr:  host,
		DestPort:  strconv.Itoa(int(port)),
		BytesSent: strconv.Itoa(sent),
		Protocol:  protocolTCP,
	}
	if local, ok := conn.LocalAddr().(*net.TCPAddr); ok {
		event.SourceAddr = local.IP.String()
		event.SourcePort = strconv.Itoa(local.Port)
	}
	return event, nil
}

// SelfTest is the join handle for the background acceptor launched by
// LoopbackSelfTest. The production path discards it; tests use it to
// observe the bytes the listener received.
type SelfTest struct {
	received chan []byte
}

// Wait blocks until the acceptor has finished reading its one connection,
// returning the received bytes. A stuck acceptor is reported as an error
// once the timeout elapses rather than being mistaken for success.
func (st *SelfTest) Wait(timeout time.Duration) ([]byte, error) {
	select {
	case received := <-st.received:
		return received, nil
	case <-time.After(timeout):
		return nil, errors.NewNetworkError("self-test listener did not complete in time", nil)
	}
}

// LoopbackSelfTest binds an ephemeral loopback listener, then connects to
// it and sends the payload. The acceptor runs detached: it accepts one
// connection, reads until the peer closes, and reports what it received
// through the returned handle. Acceptor failures surface as an empty byte
// sequence, never as an error on the connect path.
func LoopbackSelfTest(payload []byte) (events.Event, *SelfTest, error) {
	listener, err := SpawnListener("127.0.0.1", 0)
	if err != nil {
		return events.Event{}, nil, err
	}

	selfTest := &SelfTest{
		received: make(chan []byte, 1),
	}
	go func() {
		defer listener.Close()
		conn, err := listener.Accept()
		if err != nil {
			selfTest.received <- nil
			return
		}
		defer conn.Close()
		received, _ := io.ReadAll(conn)
		selfTest.received <- received
	}()

	port := uint16(listener.Addr().(*net.TCPAddr).Port)
	event, err := ConnectAndSend("127.0.0.1", port, payload)
	if err != nil {
		return events.Event{}, selfTest, err
	}
	return event, selfTest, nil
}
