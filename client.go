// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package busrpc

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/busrpc/api/bus"
	"go.uber.org/busrpc/busrpcerrors"
	"go.uber.org/busrpc/clock"
	"go.uber.org/busrpc/internal/keys"
	internalsync "go.uber.org/busrpc/internal/sync"
	"go.uber.org/busrpc/registry"
	"go.uber.org/busrpc/retry"
	"go.uber.org/busrpc/serialize"
	"go.uber.org/zap"
)

// Client dispatches calls to named services over a message bus without
// holding a direct connection to any server. One Client owns one bus,
// one listen channel keyed by its process-unique identity, and the
// pending-call table correlating results back to callers.
type Client struct {
	id     string
	listen string
	prefix string

	timeout time.Duration
	bus     bus.Bus
	codec   serialize.Codec
	servers *registry.List
	clock   clock.Clock
	logger  *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingCall
	stopped bool

	stopper      internalsync.OnceWithError
	listenerDone chan struct{}
}

// pendingCall is a one-shot completion slot. Whichever of the result
// listener, the timeout, or shutdown takes it out of the pending table
// first delivers on done; the others find the table empty and do
// nothing. That removal is the exactly-once latch.
type pendingCall struct {
	service string
	server  string
	timer   clock.Timer
	done    chan completion
}

type completion struct {
	values []interface{}
	err    error
}

// New creates a Client over the given bus, subscribes to the client's
// own listen channel, and starts the result listener and the server
// cache sweep. The caller must Stop the Client to release them.
func New(b bus.Bus, opts ...Option) (*Client, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt.apply(&options)
	}

	id := keys.NewIdentity()
	c := &Client{
		id:           id,
		listen:       keys.ListenChannel(options.prefix, id),
		prefix:       options.prefix,
		timeout:      options.timeout,
		bus:          b,
		codec:        options.codec,
		clock:        options.clock,
		logger:       options.logger,
		pending:      make(map[string]*pendingCall),
		listenerDone: make(chan struct{}),
	}

	registryOpts := []registry.Option{
		registry.Clock(options.clock),
		registry.Logger(options.logger),
	}
	if options.disableRemoteCleanup {
		registryOpts = append(registryOpts, registry.DisableRemoteCleanup())
	}
	if options.randomSource != nil {
		registryOpts = append(registryOpts, registry.RandomSource(options.randomSource))
	}
	c.servers = registry.New(b, options.prefix, options.serverMaxAge, registryOpts...)

	messages, err := b.Subscribe(context.Background(), c.listen)
	if err != nil {
		c.servers.Stop()
		return nil, busrpcerrors.Wrap(busrpcerrors.CodeTransport, err)
	}
	go c.listenLoop(messages)

	return c, nil
}

// Identity returns the process-unique identity of this client, which is
// also the suffix of its listen channel.
func (c *Client) Identity() string {
	return c.id
}

// Call invokes the named service with the given arguments and waits for
// the result values.
//
// The target server is picked uniformly at random among the registered
// servers for the service; an empty server list fails fast with
// CodeNoAvailableServer, starting no timer and publishing nothing. A
// dispatched call that sees no result within the configured timeout
// fails with CodeCallTimeout and evicts the target from the local cache
// as presumptively unhealthy (and deletes its registration key, unless
// remote cleanup is disabled). The result callback path and the timeout
// path complete a call at most once between them.
func (c *Client) Call(ctx context.Context, service string, args ...interface{}) ([]interface{}, error) {
	if service == "" {
		return nil, busrpcerrors.InvalidArgumentErrorf("service name is required")
	}

	serverID, err := c.servers.FindOne(ctx, service)
	if err != nil {
		return nil, err
	}

	env := &serialize.Envelope{
		ID:     uuid.NewString(),
		Sender: c.id,
		Type:   serialize.TypeCall,
		Name:   service,
		Args:   args,
	}
	payload, err := c.codec.Encode(env)
	if err != nil {
		return nil, busrpcerrors.Wrap(busrpcerrors.CodeInvalidArgument, err)
	}

	pc := &pendingCall{
		service: service,
		server:  serverID,
		done:    make(chan completion, 1),
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil, busrpcerrors.ClientClosedErrorf("client is stopped")
	}
	c.pending[env.ID] = pc
	pc.timer = c.clock.AfterFunc(c.timeout, func() { c.expire(env.ID) })
	c.mu.Unlock()

	if err := c.bus.Publish(ctx, keys.ListenChannel(c.prefix, serverID), payload); err != nil {
		c.take(env.ID)
		return nil, busrpcerrors.Wrap(busrpcerrors.CodeTransport, err)
	}

	select {
	case comp := <-pc.done:
		return comp.values, comp.err
	case <-ctx.Done():
		if c.take(env.ID) == nil {
			// Lost the race against a completion already in flight.
			comp := <-pc.done
			return comp.values, comp.err
		}
		return nil, ctx.Err()
	}
}

// Bind produces a reusable caller for the service under the given retry
// policy. Attempts are re-dispatched through this client: immediately
// after a timeout, and after one timeout-sized delay when no server was
// available.
func (c *Client) Bind(service string, policy *retry.Policy) retry.BoundCall {
	return retry.Bind(c, service, policy,
		retry.NoServerDelay(c.timeout),
		retry.Clock(c.clock),
		retry.Logger(c.logger),
	)
}

// Stop halts the sweep, closes the bus (and with it the listener
// stream), and fails every outstanding call with CodeClientClosed.
// Stop is idempotent.
func (c *Client) Stop() error {
	return c.stopper.Do(func() error {
		c.servers.Stop()

		c.mu.Lock()
		c.stopped = true
		pending := c.pending
		c.pending = make(map[string]*pendingCall)
		c.mu.Unlock()

		for id, pc := range pending {
			pc.timer.Stop()
			pc.done <- completion{
				err: busrpcerrors.ClientClosedErrorf("client stopped with call %q in flight", id),
			}
		}

		err := c.bus.Close()
		<-c.listenerDone
		return err
	})
}

// take removes and returns the pending call for a correlation id,
// stopping its timer. It returns nil if the id is unknown or the call
// was already taken; at most one caller ever receives a given call.
func (c *Client) take(id string) *pendingCall {
	c.mu.Lock()
	pc, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		return nil
	}
	if pc.timer != nil {
		pc.timer.Stop()
	}
	return pc
}

// expire is the timeout arm of the exactly-once latch.
func (c *Client) expire(id string) {
	pc := c.take(id)
	if pc == nil {
		return
	}

	c.servers.Remove(context.Background(), pc.service, pc.server)
	c.logger.Debug("call timed out",
		zap.String("id", id),
		zap.String("service", pc.service),
		zap.String("server", pc.server),
		zap.Duration("timeout", c.timeout))

	pc.done <- completion{
		err: busrpcerrors.CallTimeoutErrorf(
			"call to service %q on server %q timed out after %v", pc.service, pc.server, c.timeout),
	}
}

func (c *Client) listenLoop(messages <-chan bus.Message) {
	defer close(c.listenerDone)
	for msg := range messages {
		c.handle(msg)
	}
}

// handle routes one delivered message to its pending call.
func (c *Client) handle(msg bus.Message) {
	if msg.Channel != c.listen {
		// Safety net against a bus that does not perfectly scope
		// delivery to subscribed channels.
		c.logger.Debug("dropping message from unexpected channel",
			zap.String("channel", msg.Channel))
		return
	}

	env, err := c.codec.Decode(msg.Payload)
	if err != nil {
		c.logger.Debug("dropping undecodable message", zap.Error(err))
		return
	}

	if env.Type != serialize.TypeResult {
		c.logger.Debug("dropping message of unexpected type",
			zap.String("type", env.Type),
			zap.String("id", env.ID))
		return
	}

	pc := c.take(env.ID)
	if pc == nil {
		// Already completed, timed out, or never ours. Late results
		// after a local timeout land here and are dropped silently.
		c.logger.Debug("dropping result with no pending call", zap.String("id", env.ID))
		return
	}

	pc.done <- completion{
		values: env.Args,
		err:    statusFromDescriptor(env.Error),
	}
}

// statusFromDescriptor converts a wire error descriptor to a Status,
// preserving the remote code when it is one of ours.
func statusFromDescriptor(desc *serialize.ErrorDescriptor) error {
	if desc == nil {
		return nil
	}
	var code busrpcerrors.Code
	if err := code.UnmarshalText([]byte(desc.Code)); err != nil || code == busrpcerrors.CodeOK {
		code = busrpcerrors.CodeUnknown
	}
	return busrpcerrors.Newf(code, "%s", desc.Message)
}
