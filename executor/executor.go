// Package executor is the client side of the bidirectional RPC link to
// the external contract-execution co-process. The executor process
// itself, the bytecode interpreter it hosts, and the wire protocol's
// exact opcodes are out of scope — this package only defines the
// interface the core calls through and a TCP-backed implementation of
// it, so BlockChain's smart-contract hooks have a real collaborator to
// call without depending on the interpreter's implementation.
package executor

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v4"

	"github.com/Stoner19/node/crypto"
	"github.com/Stoner19/node/persist"
	nsync "github.com/Stoner19/node/sync"
)

// Status mirrors the {code, message} envelope every executor response
// carries.
type Status struct {
	Code    int32
	Message string
}

// OK reports whether the call succeeded.
func (s Status) OK() bool { return s.Code == 0 }

// ByteCodeResult is the outcome of executing a contract method.
type ByteCodeResult struct {
	Status   Status
	RetValue []byte
	NewState []byte
}

// ContractMethod describes one exported method of a compiled contract.
type ContractMethod struct {
	Name   string
	Params []string
}

// ContractVariable describes one piece of a contract's persistent state.
type ContractVariable struct {
	Name  string
	Type  string
	Value []byte
}

// Executor is the set of RPCs the core drives against the co-process.
// A read-only consumer (the API stub's contract introspection) only
// needs the query half; the consensus path only needs the execution
// half. Both are kept on one interface since a single TCP connection
// serves both in practice.
type Executor interface {
	ExecuteByteCode(ctx context.Context, contract []byte, method string, params []byte) (ByteCodeResult, error)
	ExecuteByteCodeMultiple(ctx context.Context, contract []byte, calls []string) ([]ByteCodeResult, error)
	GetContractMethods(ctx context.Context, byteCode []byte) ([]ContractMethod, error)
	GetContractVariables(ctx context.Context, contract []byte) ([]ContractVariable, error)
	CompileSourceCode(ctx context.Context, source string) ([]byte, Status, error)
}

// request/response are the msgpack-framed envelope exchanged over the
// wire: a correlation id that matches a response to its caller, a
// method name, and an opaque payload specific to that method.
type request struct {
	ID     string
	Method string
	Params []byte
}

// Per-method parameter structs. Used instead of map[string]interface{}
// so msgpack encodes identical logical calls to byte-identical Params,
// which the call cache key depends on.
type executeByteCodeParams struct {
	Contract []byte
	Method   string
	Params   []byte
}

type executeByteCodeMultipleParams struct {
	Contract []byte
	Calls    []string
}

type getContractMethodsParams struct {
	ByteCode []byte
}

type getContractVariablesParams struct {
	Contract []byte
}

type compileSourceCodeParams struct {
	Source string
}

type response struct {
	ID      string
	Status  Status
	Payload []byte
}

// Config holds the connection parameters for the executor link.
type Config struct {
	Host            string
	Port            int
	SendTimeout     time.Duration
	ReceiveTimeout  time.Duration
	CmdLine         string
}

// DefaultConfig matches the reference node's default 4000ms send/receive
// timeouts.
var DefaultConfig = Config{SendTimeout: 4 * time.Second, ReceiveTimeout: 4 * time.Second}

// Client is a TCP-backed Executor. A broken connection triggers an
// automatic reconnect on a background goroutine rather than failing
// every subsequent call; callers see ErrNotOpen only for calls made
// while a reconnect is in flight.
type Client struct {
	cfg Config
	log *persist.Logger
	tg  nsync.ThreadGroup

	conn   net.Conn
	reader *bufio.Reader

	cache *lru.Cache

	reconnect chan struct{}
}

// ErrNotOpen is returned by any call made while the connection to the
// executor process is down.
var ErrNotOpen = fmt.Errorf("executor: connection is not open")

// New dials the executor process and starts the background reconnect
// watcher. cacheSize bounds the number of recent call results kept to
// answer an identical retried call without re-executing it.
func New(cfg Config, log *persist.Logger, cacheSize int) (*Client, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	c := &Client{cfg: cfg, log: log, cache: cache, reconnect: make(chan struct{}, 1)}
	if err := c.dial(); err != nil {
		log.Println("[WARN] executor: initial dial failed, will retry:", err)
		c.reconnect <- struct{}{}
	}
	if err := c.tg.Add(); err == nil {
		go c.reconnectLoop()
	}
	return c, nil
}

func (c *Client) dial() error {
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	conn, err := net.DialTimeout("tcp", addr, c.cfg.SendTimeout)
	if err != nil {
		return err
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// reconnectLoop redials on demand, signaled by a failed initial dial or
// a failed call pushing to c.reconnect. It exits when the thread group is stopped.
func (c *Client) reconnectLoop() {
	defer c.tg.Done()
	for {
		select {
		case <-c.tg.StopChan():
			return
		case <-c.reconnect:
			if err := c.dial(); err != nil {
				c.log.Println("[WARN] executor: reconnect failed:", err)
				time.Sleep(time.Second)
				select {
				case c.reconnect <- struct{}{}:
				default:
				}
			}
		}
	}
}

func (c *Client) markBroken() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	select {
	case c.reconnect <- struct{}{}:
	default:
	}
}

func (c *Client) call(ctx context.Context, method string, params interface{}) (response, error) {
	if c.conn == nil {
		return response{}, ErrNotOpen
	}

	paramBytes, err := msgpack.Marshal(params)
	if err != nil {
		return response{}, err
	}
	req := request{ID: uuid.New().String(), Method: method, Params: paramBytes}

	// Keyed by a digest of (method, params) rather than req.ID, so a
	// retried identical call hits the cache instead of always missing
	// behind a fresh correlation id.
	cacheKey := crypto.HashBytes(append([]byte(method), paramBytes...))
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.(response), nil
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.SendTimeout))
	reqBytes, err := msgpack.Marshal(req)
	if err != nil {
		return response{}, err
	}
	if _, err := c.conn.Write(reqBytes); err != nil {
		c.markBroken()
		return response{}, err
	}

	c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReceiveTimeout))
	dec := msgpack.NewDecoder(c.reader)
	var resp response
	if err := dec.Decode(&resp); err != nil {
		c.markBroken()
		return response{}, err
	}

	c.cache.Add(cacheKey, resp)
	return resp, nil
}

// ExecuteByteCode invokes one contract method and returns its result.
func (c *Client) ExecuteByteCode(ctx context.Context, contract []byte, method string, params []byte) (ByteCodeResult, error) {
	resp, err := c.call(ctx, "executeByteCode", executeByteCodeParams{
		Contract: contract, Method: method, Params: params,
	})
	if err != nil {
		return ByteCodeResult{}, err
	}
	var result ByteCodeResult
	if err := msgpack.Unmarshal(resp.Payload, &result); err != nil {
		return ByteCodeResult{}, err
	}
	result.Status = resp.Status
	return result, nil
}

// ExecuteByteCodeMultiple invokes several method calls against one
// contract in a single round trip.
func (c *Client) ExecuteByteCodeMultiple(ctx context.Context, contract []byte, calls []string) ([]ByteCodeResult, error) {
	resp, err := c.call(ctx, "executeByteCodeMultiple", executeByteCodeMultipleParams{
		Contract: contract, Calls: calls,
	})
	if err != nil {
		return nil, err
	}
	var results []ByteCodeResult
	if err := msgpack.Unmarshal(resp.Payload, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// GetContractMethods lists the exported methods of compiled byteCode.
func (c *Client) GetContractMethods(ctx context.Context, byteCode []byte) ([]ContractMethod, error) {
	resp, err := c.call(ctx, "getContractMethods", getContractMethodsParams{ByteCode: byteCode})
	if err != nil {
		return nil, err
	}
	var methods []ContractMethod
	if err := msgpack.Unmarshal(resp.Payload, &methods); err != nil {
		return nil, err
	}
	return methods, nil
}

// GetContractVariables lists contract's persistent state variables.
func (c *Client) GetContractVariables(ctx context.Context, contract []byte) ([]ContractVariable, error) {
	resp, err := c.call(ctx, "getContractVariables", getContractVariablesParams{Contract: contract})
	if err != nil {
		return nil, err
	}
	var vars []ContractVariable
	if err := msgpack.Unmarshal(resp.Payload, &vars); err != nil {
		return nil, err
	}
	return vars, nil
}

// CompileSourceCode compiles source into byte code.
func (c *Client) CompileSourceCode(ctx context.Context, source string) ([]byte, Status, error) {
	resp, err := c.call(ctx, "compileSourceCode", compileSourceCodeParams{Source: source})
	if err != nil {
		return nil, Status{}, err
	}
	return resp.Payload, resp.Status, nil
}

// Close stops the reconnect watcher and closes the connection.
func (c *Client) Close() error {
	c.tg.Stop()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

var _ Executor = (*Client)(nil)
