package dvs

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/durin-robotics/durin/internal/monitoring"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

func startServer(t *testing.T) (*Server, *NopStreamer) {
	t.Helper()
	streamer := &NopStreamer{}
	srv, err := NewServer(0, streamer)
	require.NoError(t, err)
	go srv.Serve()
	t.Cleanup(func() { srv.Close() })
	return srv, streamer
}

func dialServer(t *testing.T, srv *Server) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitCalls(t *testing.T, s *NopStreamer, wantStarts, wantStops int) {
	t.Helper()
	require.Eventually(t, func() bool {
		starts, stops := s.Calls()
		return len(starts) == wantStarts && stops == wantStops
	}, time.Second, time.Millisecond, "streamer calls never settled")
}

func TestStartMessageStartsStream(t *testing.T) {
	srv, streamer := startServer(t)
	conn := dialServer(t, srv)

	msg, err := EncodeStart("10.0.0.2", 4301)
	require.NoError(t, err)
	_, err = conn.Write(msg)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		starts, _ := streamer.Calls()
		return len(starts) == 1
	}, time.Second, time.Millisecond)
	starts, _ := streamer.Calls()
	assert.Equal(t, []string{"10.0.0.2:4301"}, starts)
}

func TestStopIsIdempotent(t *testing.T) {
	srv, streamer := startServer(t)
	conn := dialServer(t, srv)

	msg, err := EncodeStart("10.0.0.2", 4301)
	require.NoError(t, err)
	_, err = conn.Write(msg)
	require.NoError(t, err)
	waitCalls(t, streamer, 1, 1) // accept preempts once before the start

	// Repeated stops each reach the streamer, whose StopStream contract is
	// idempotent.
	for i := 0; i < 3; i++ {
		_, err = conn.Write(EncodeStop())
		require.NoError(t, err)
	}
	waitCalls(t, streamer, 1, 4)
}

func TestDisconnectStopsActiveStream(t *testing.T) {
	srv, streamer := startServer(t)
	conn := dialServer(t, srv)

	msg, err := EncodeStart("10.0.0.2", 4301)
	require.NoError(t, err)
	_, err = conn.Write(msg)
	require.NoError(t, err)
	waitCalls(t, streamer, 1, 1)

	conn.Close()
	waitCalls(t, streamer, 1, 2)
}

func TestLastConnectionWins(t *testing.T) {
	srv, streamer := startServer(t)

	first := dialServer(t, srv)
	msg, err := EncodeStart("10.0.0.2", 4301)
	require.NoError(t, err)
	_, err = first.Write(msg)
	require.NoError(t, err)
	waitCalls(t, streamer, 1, 1)

	// A second connection preempts: the active stream stops before the new
	// client is serviced, and its start message lands afterwards.
	second := dialServer(t, srv)
	msg2, err := EncodeStart("10.0.0.3", 4302)
	require.NoError(t, err)
	_, err = second.Write(msg2)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		starts, stops := streamer.Calls()
		return len(starts) == 2 && stops >= 2
	}, time.Second, time.Millisecond)
	starts, _ := streamer.Calls()
	assert.Equal(t, []string{"10.0.0.2:4301", "10.0.0.3:4302"}, starts)

	// The first connection's socket was closed by the preemption.
	first.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	_, err = first.Read(buf)
	assert.Error(t, err)
}

func TestServerCloseIdempotent(t *testing.T) {
	srv, _ := startServer(t)
	require.NoError(t, srv.Close())
	assert.NoError(t, srv.Close())
}

func TestClientDrivesServer(t *testing.T) {
	srv, streamer := startServer(t)
	port := srv.Addr().(*net.TCPAddr).Port

	c := NewClient("127.0.0.1", port)
	require.NoError(t, c.StartStream("10.1.2.3", 5000))
	require.Eventually(t, func() bool {
		starts, _ := streamer.Calls()
		return len(starts) == 1 && starts[0] == "10.1.2.3:5000"
	}, time.Second, time.Millisecond)

	c.StopStream()
	c.StopStream() // idempotent: no connection left, no panic
	require.Eventually(t, func() bool {
		_, stops := streamer.Calls()
		return stops >= 2
	}, time.Second, time.Millisecond)
}
