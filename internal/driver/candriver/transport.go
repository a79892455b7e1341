//go:build linux

// Package candriver's transport is SocketCAN-only: go.einride.tech/can's
// socketcan package binds Linux AF_CAN raw sockets, so unlike the rest of
// this package the build tag here is load-bearing rather than decorative.
package candriver

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// bus is the transport interface the Driver depends on, letting tests
// substitute a fake without a real SocketCAN interface present.
type bus interface {
	WriteFrame(ctx context.Context, frame can.Frame) error
	ReadFrame(ctx context.Context, readBudget time.Duration) (can.Frame, error)
	Close() error
}

// canBus is a single raw CAN socket shared by both directions: unlike the
// teacher's runner.go, which dials one socketcan connection per direction,
// one AF_CAN socket already supports concurrent Transmitter/Receiver use,
// so a single dial here halves the file descriptors an interface needs.
type canBus struct {
	conn net.Conn
	tx   *socketcan.Transmitter
	rx   *socketcan.Receiver
}

func newCANBus(ctx context.Context, iface string) (*canBus, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("socketcan dial %s: %w", iface, err)
	}
	return &canBus{
		conn: conn,
		tx:   socketcan.NewTransmitter(conn),
		rx:   socketcan.NewReceiver(conn),
	}, nil
}

func (b *canBus) WriteFrame(ctx context.Context, frame can.Frame) error {
	return b.tx.TransmitFrame(ctx, frame)
}

// ReadFrame blocks until a frame arrives, readBudget elapses, or ctx is
// done, whichever comes first. socketcan.Receiver has no context-aware
// Receive, so the blocking call runs in a goroutine and is raced against
// the deadline; on timeout or cancellation the goroutine is left to exit
// on its own once the connection closes.
func (b *canBus) ReadFrame(ctx context.Context, readBudget time.Duration) (can.Frame, error) {
	deadline, cancel := context.WithTimeout(ctx, readBudget)
	defer cancel()

	frameChan := make(chan can.Frame, 1)
	errChan := make(chan error, 1)

	go func() {
		if b.rx.Receive() {
			frameChan <- b.rx.Frame()
		} else {
			errChan <- fmt.Errorf("receive failed")
		}
	}()

	select {
	case <-deadline.Done():
		return can.Frame{}, deadline.Err()
	case frame := <-frameChan:
		return frame, nil
	case err := <-errChan:
		return can.Frame{}, err
	}
}

func (b *canBus) Close() error {
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
