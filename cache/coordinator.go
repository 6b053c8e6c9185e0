package cache

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// DefaultMailboxSize is the mutation queue depth used when the caller does
// not configure one.
const DefaultMailboxSize = 256

var (
	// ErrCoordinatorDown is returned for mutations dispatched to a
	// Coordinator whose loop has exited. Unapplied mutations are
	// discarded, never replayed after a restart.
	ErrCoordinatorDown = errors.New("cache: coordinator is down")

	// ErrUnknownCommand acknowledges a command the Coordinator does not
	// recognize. The command is dropped; the loop keeps running.
	ErrUnknownCommand = errors.New("cache: unknown command dropped")
)

type opcode int

const (
	opPut opcode = iota
	opDelete
	opClear
)

func (o opcode) String() string {
	switch o {
	case opPut:
		return "put"
	case opDelete:
		return "delete"
	case opClear:
		return "clear"
	default:
		return fmt.Sprintf("opcode(%d)", int(o))
	}
}

type command[V any] struct {
	op    opcode
	key   string
	value V
	reply chan error
}

// Coordinator is the sole writer of a Store. A single goroutine drains the
// mailbox and applies commands one at a time, in the order they were
// received, acknowledging each caller only after its mutation is visible
// to readers. That discipline yields a total order over mutations and
// read-after-own-write for any caller that waits for its acknowledgment.
//
// Each Coordinator carries a name (its entity type) so external tooling
// can identify the process and observe its backlog.
type Coordinator[V any] struct {
	name    string
	store   *Store[V]
	mailbox chan command[V]
	kill    chan error
	done    chan struct{}
	exitErr error
	logger  *zap.Logger
}

// NewCoordinator creates a Coordinator owning store. The caller must
// invoke Start before dispatching mutations. A mailboxSize <= 0 falls back
// to DefaultMailboxSize.
func NewCoordinator[V any](name string, store *Store[V], mailboxSize int, logger *zap.Logger) *Coordinator[V] {
	if mailboxSize <= 0 {
		mailboxSize = DefaultMailboxSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator[V]{
		name:    name,
		store:   store,
		mailbox: make(chan command[V], mailboxSize),
		kill:    make(chan error, 1),
		done:    make(chan struct{}),
		logger:  logger.With(zap.String("coordinator", name)),
	}
}

// Start launches the mailbox loop.
func (c *Coordinator[V]) Start() {
	go c.run()
}

func (c *Coordinator[V]) run() {
	defer func() {
		if r := recover(); r != nil {
			c.exitErr = fmt.Errorf("cache: coordinator %s panic: %v", c.name, r)
		}
		close(c.done)
	}()

	for {
		select {
		case reason := <-c.kill:
			c.exitErr = reason
			return
		case cmd := <-c.mailbox:
			c.apply(cmd)
		}
	}
}

func (c *Coordinator[V]) apply(cmd command[V]) {
	var err error
	switch cmd.op {
	case opPut:
		c.store.put(cmd.key, cmd.value)
	case opDelete:
		c.store.delete(cmd.key)
	case opClear:
		c.store.clear()
	default:
		c.logger.Warn("dropping unrecognized command", zap.Stringer("op", cmd.op))
		err = ErrUnknownCommand
	}
	if cmd.reply != nil {
		cmd.reply <- err
	}
}

// Put installs value under key. It returns once the mutation has been
// applied, the context expires, or the Coordinator dies. A context error
// means the caller must not assume the mutation was or was not applied.
func (c *Coordinator[V]) Put(ctx context.Context, key string, value V) error {
	return c.dispatch(ctx, command[V]{op: opPut, key: key, value: value})
}

// Delete removes key. Deleting an absent key is acknowledged as success.
func (c *Coordinator[V]) Delete(ctx context.Context, key string) error {
	return c.dispatch(ctx, command[V]{op: opDelete, key: key})
}

// Clear empties the store.
func (c *Coordinator[V]) Clear(ctx context.Context) error {
	return c.dispatch(ctx, command[V]{op: opClear})
}

func (c *Coordinator[V]) dispatch(ctx context.Context, cmd command[V]) error {
	cmd.reply = make(chan error, 1)

	select {
	case c.mailbox <- cmd:
	case <-c.done:
		return ErrCoordinatorDown
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-c.done:
		return ErrCoordinatorDown
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop shuts the loop down cleanly. The Supervisor treats a nil exit
// reason as intentional and does not restart.
func (c *Coordinator[V]) Stop() {
	c.Kill(nil)
}

// Kill forces the loop to exit with the given reason. Queued and in-flight
// mutations fail with ErrCoordinatorDown; nothing is replayed later.
func (c *Coordinator[V]) Kill(reason error) {
	select {
	case c.kill <- reason:
	case <-c.done:
	}
}

// Name identifies the Coordinator (its entity type).
func (c *Coordinator[V]) Name() string { return c.name }

// Store returns the Store this Coordinator owns. The Store supports
// concurrent reads; all writes go through the Coordinator.
func (c *Coordinator[V]) Store() *Store[V] { return c.store }

// Backlog reports the number of queued, not-yet-applied mutations.
func (c *Coordinator[V]) Backlog() int { return len(c.mailbox) }

// Done is closed when the loop has exited.
func (c *Coordinator[V]) Done() <-chan struct{} { return c.done }

// ExitReason reports why the loop exited. It is meaningful only after
// Done is closed; nil means a clean Stop.
func (c *Coordinator[V]) ExitReason() error {
	select {
	case <-c.done:
		return c.exitErr
	default:
		return nil
	}
}

// newDeadCoordinator builds a Coordinator that is already down, wrapping a
// fresh empty store. The Supervisor installs one when it gives up, so
// readers see an empty cache instead of entries no Clear can ever reach.
func newDeadCoordinator[V any](name string, reason error, logger *zap.Logger) *Coordinator[V] {
	c := NewCoordinator[V](name, NewStore[V](), 1, logger)
	c.exitErr = reason
	close(c.done)
	return c
}
