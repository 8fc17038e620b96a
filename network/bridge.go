package network

import (
	"context"
	"runtime"

	"github.com/go-errors/errors"
)

// task runs on the worker goroutine with exclusive access to the handle.
type task func(Handle) error

type BridgeConfig struct {
	Logger Logger
}

// Bridge owns a Handle on one dedicated, OS thread locked goroutine and
// serializes every access to it. Work is shipped through a single slot
// request channel and answered through a single slot response channel; the
// gate guarantees at most one request/response cycle is in flight.
type Bridge struct {
	log       Logger
	requests  chan task
	responses chan error
	gate      chan struct{}
	done      chan struct{}
	err       error
}

// NewBridge starts the worker goroutine which opens the handle and then
// serves tasks for the lifetime of the process.
func NewBridge(open func() (Handle, error), config *BridgeConfig) *Bridge {
	b := &Bridge{
		requests:  make(chan task, 1),
		responses: make(chan error, 1),
		gate:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}

	if config != nil && config.Logger != nil {
		b.log = config.Logger
	} else {
		b.log = noopLogger{}
	}

	go b.run(open)

	return b
}

func (b *Bridge) run(open func() (Handle, error)) {
	runtime.LockOSThread()

	defer close(b.done)

	handle, err := open()
	if err != nil {
		b.err = errors.Errorf("could not open network handle: %v", err)
		b.log.Errorf("Network worker failed to start: %v", err)
		return
	}

	b.log.Debugf("Network worker started")

	for t := range b.requests {
		err := b.execute(handle, t)
		if b.err != nil {
			b.log.Errorf("Network worker stopped: %v", b.err)
			return
		}

		select {
		case b.responses <- err:
		default:
			b.log.Warnf("Discarding result nobody is waiting for")
		}
	}
}

// execute runs a task. A panicking task stops the worker.
func (b *Bridge) execute(handle Handle, t task) error {
	defer func() {
		if r := recover(); r != nil {
			b.err = errors.Errorf("task panicked: %v", r)
		}
	}()

	return t(handle)
}

// Done is closed once the worker has stopped and can't serve tasks anymore.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// Err returns why the worker stopped, or nil while it is running.
func (b *Bridge) Err() error {
	select {
	case <-b.done:
		return b.err
	default:
		return nil
	}
}

// Submit runs fn on the worker and returns its result to this caller only.
// The context bounds waiting for the gate and for the result, but a task
// that was already handed to the worker always runs to completion.
func Submit[T any](ctx context.Context, b *Bridge, fn func(Handle) (T, error)) (T, error) {
	var result T

	err := b.do(ctx, func(h Handle) error {
		var err error
		result, err = fn(h)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return result, nil
}

func (b *Bridge) do(ctx context.Context, t task) error {
	select {
	case <-b.done:
		return b.closedError()
	default:
	}

	select {
	case b.gate <- struct{}{}:
	case <-b.done:
		return b.closedError()
	case <-ctx.Done():
		return wrapKind(ErrBridge, ctx.Err())
	}

	select {
	case b.requests <- t:
	case <-b.done:
		b.release()
		return b.closedError()
	case <-ctx.Done():
		b.release()
		return wrapKind(ErrBridge, ctx.Err())
	}

	select {
	case err := <-b.responses:
		b.release()
		return err
	case <-b.done:
		b.release()
		return b.closedError()
	case <-ctx.Done():
		// the result still has to be taken off the response channel before
		// anybody else may use the gate
		go b.discard()
		return wrapKind(ErrBridge, ctx.Err())
	}
}

func (b *Bridge) discard() {
	select {
	case <-b.responses:
	case <-b.done:
	}

	b.release()
}

func (b *Bridge) release() {
	<-b.gate
}

func (b *Bridge) closedError() error {
	return wrapKind(ErrBridgeClosed, b.err)
}
