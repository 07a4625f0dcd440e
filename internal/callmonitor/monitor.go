package callmonitor

import (
	"bufio"
	"context"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/hausnetz/fonwatch/internal/domain"
	"github.com/hausnetz/fonwatch/internal/logger"
	"github.com/hausnetz/fonwatch/pkg/publishers"
)

// Directory is the lookup surface the monitor resolves numbers against.
type Directory interface {
	Name() string
	SourceID() string
	LookupNumber(query string) (string, bool)
}

// EventPublisher dispatches resolved call events downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

const (
	dialTimeout     = 10 * time.Second
	resetAfterAlive = time.Minute
)

// Monitor consumes the router's call monitor TCP stream, resolves the
// remote number against the configured phonebooks, and publishes one
// event per call monitor line.
type Monitor struct {
	address     string
	directories []Directory
	fanout      EventPublisher
}

// New builds a call monitor for the given address ("host:1012").
func New(address string, directories []Directory, fanout EventPublisher) *Monitor {
	return &Monitor{
		address:     strings.TrimSpace(address),
		directories: directories,
		fanout:      fanout,
	}
}

// Run keeps a connection to the call monitor open until the context is
// cancelled, reconnecting with exponential backoff after failures. A
// connection that stayed alive for a while resets the backoff.
func (m *Monitor) Run(ctx context.Context) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = time.Second
	exp.Multiplier = 2.0
	exp.MaxInterval = 30 * time.Second
	exp.Reset()

	for {
		connectedAt := time.Now()
		err := m.listen(ctx)
		if ctx.Err() != nil {
			logger.InfoObj("call monitor exiting", "reason", ctx.Err())
			return nil
		}

		if time.Since(connectedAt) > resetAfterAlive {
			exp.Reset()
		}
		wait := exp.NextBackOff()
		logger.WarnObj("call monitor connection lost", "callmonitor_error", map[string]any{
			"address":     m.address,
			"error":       errString(err),
			"retry_after": wait.String(),
		})

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// listen connects and consumes lines until the connection breaks or the
// context is cancelled.
func (m *Monitor) listen(ctx context.Context) error {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", m.address)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock the scanner when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	logger.InfoObj("call monitor connected", "address", m.address)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		call, err := ParseLine(line)
		if err != nil {
			logger.WarnObj("skipping malformed call monitor line", "callmonitor_line", map[string]any{
				"line":  line,
				"error": err.Error(),
			})
			continue
		}
		m.handle(ctx, line, call)
	}
	return scanner.Err()
}

// handle resolves the call against the phonebooks and publishes the event.
func (m *Monitor) handle(ctx context.Context, line string, call domain.Call) {
	evt := publishers.NewEvent(call)

	if remote := call.RemoteNumber(); remote != "" {
		for _, dir := range m.directories {
			if name, ok := dir.LookupNumber(remote); ok {
				evt.CallerName = name
				evt.SourceID = dir.SourceID()
				evt.Phonebook = dir.Name()
				break
			}
		}
	}

	if m.fanout == nil {
		return
	}
	delivered, err := m.fanout.Publish(ctx, evt)
	if err != nil {
		logger.ErrorObj("call event publish failed", "callmonitor_publish", map[string]any{
			"line":      line,
			"delivered": delivered,
			"error":     err.Error(),
		})
		return
	}
	logger.DebugObj("call event published", "callmonitor_event", map[string]any{
		"kind":        evt.Kind,
		"caller_name": evt.CallerName,
		"delivered":   delivered,
	})
}

func errString(err error) string {
	if err == nil {
		return "connection closed"
	}
	return err.Error()
}
