package executor

import (
	"context"
	"net"
	"testing"

	"github.com/vmihailenco/msgpack/v4"

	"github.com/Stoner19/node/persist"
)

// fakeExecutorServer accepts exactly one connection and answers every
// request with a canned ByteCodeResult, mirroring just enough of the
// wire protocol to exercise Client.call end to end.
func fakeExecutorServer(t *testing.T, ln net.Listener) {
	t.Helper()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		dec := msgpack.NewDecoder(conn)
		for {
			var req request
			if err := dec.Decode(&req); err != nil {
				return
			}
			payload, _ := msgpack.Marshal(ByteCodeResult{RetValue: []byte("ok")})
			resp := response{ID: req.ID, Status: Status{Code: 0}, Payload: payload}
			respBytes, _ := msgpack.Marshal(resp)
			if _, err := conn.Write(respBytes); err != nil {
				return
			}
		}
	}()
}

func newTestLogger(t *testing.T) *persist.Logger {
	t.Helper()
	log, err := persist.NewFileLogger(persist.BlockchainInfo{Name: "executor-test"}, t.TempDir()+"/test.log", false)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

// TestExecuteByteCodeRoundTrip covers a full call against a loopback
// server: the request is marshaled, sent, and the response decoded back
// into a ByteCodeResult.
func TestExecuteByteCodeRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	fakeExecutorServer(t, ln)

	addr := ln.Addr().(*net.TCPAddr)
	cfg := DefaultConfig
	cfg.Host = "localhost"
	cfg.Port = addr.Port

	client, err := New(cfg, newTestLogger(t), 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	result, err := client.ExecuteByteCode(context.Background(), []byte("contract"), "run", nil)
	if err != nil {
		t.Fatalf("ExecuteByteCode: %v", err)
	}
	if !result.Status.OK() {
		t.Fatalf("result.Status.OK() = false, want true")
	}
	if string(result.RetValue) != "ok" {
		t.Fatalf("RetValue = %q, want %q", result.RetValue, "ok")
	}
}

// singleShotExecutorServer answers exactly one request and then stops
// reading entirely, so a second call with the same method/params can
// only succeed by hitting the result cache rather than round-tripping.
func singleShotExecutorServer(t *testing.T, ln net.Listener) {
	t.Helper()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var req request
		if err := msgpack.NewDecoder(conn).Decode(&req); err != nil {
			return
		}
		payload, _ := msgpack.Marshal(ByteCodeResult{RetValue: []byte("once")})
		resp := response{ID: req.ID, Status: Status{Code: 0}, Payload: payload}
		respBytes, _ := msgpack.Marshal(resp)
		conn.Write(respBytes)
	}()
}

// TestCallCachesByMethodAndParams covers the result cache: two calls
// with identical method/params but distinct correlation ids must reuse
// the cached response, since the server behind singleShotExecutorServer
// never answers a second request.
func TestCallCachesByMethodAndParams(t *testing.T) {
	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	singleShotExecutorServer(t, ln)

	addr := ln.Addr().(*net.TCPAddr)
	cfg := DefaultConfig
	cfg.Host = "localhost"
	cfg.Port = addr.Port

	client, err := New(cfg, newTestLogger(t), 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	first, err := client.ExecuteByteCode(context.Background(), []byte("contract"), "run", nil)
	if err != nil {
		t.Fatalf("first ExecuteByteCode: %v", err)
	}

	second, err := client.ExecuteByteCode(context.Background(), []byte("contract"), "run", nil)
	if err != nil {
		t.Fatalf("second ExecuteByteCode: %v, want cache hit", err)
	}
	if string(second.RetValue) != string(first.RetValue) {
		t.Fatalf("second.RetValue = %q, want cached %q", second.RetValue, first.RetValue)
	}
}

// TestCallWithoutConnection covers a Client whose dial never succeeded:
// every call must fail fast with ErrNotOpen rather than blocking.
func TestCallWithoutConnection(t *testing.T) {
	cfg := DefaultConfig
	cfg.Host = "localhost"
	cfg.Port = 1 // nothing listens on a privileged port in a test sandbox

	client, err := New(cfg, newTestLogger(t), 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	_, err = client.ExecuteByteCode(context.Background(), nil, "run", nil)
	if err != ErrNotOpen {
		t.Fatalf("ExecuteByteCode error = %v, want ErrNotOpen", err)
	}
}

// TestStatusOK covers the zero-value Status meaning success, matching
// the wire convention that an omitted code field decodes as 0.
func TestStatusOK(t *testing.T) {
	if !(Status{}).OK() {
		t.Fatalf("zero-value Status.OK() = false, want true")
	}
	if (Status{Code: 1}).OK() {
		t.Fatalf("Status{Code: 1}.OK() = true, want false")
	}
}
