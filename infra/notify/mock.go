package notify

import (
	"context"
	"fmt"
	"sync"

	corenotify "github.com/medride/dispatch/core/notify"
)

// Gateway mirrors the core notify.Gateway interface.
type Gateway = corenotify.Gateway

// MockGateway is a simple gateway used in tests. It records every payload
// per address and can be configured to fail specific addresses.
type MockGateway struct {
	Messages  map[string][]corenotify.Payload
	FailAddrs map[string]bool
	mu        sync.Mutex
}

// NewMockGateway creates a new MockGateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		Messages:  make(map[string][]corenotify.Payload),
		FailAddrs: make(map[string]bool),
	}
}

// Send records the payload or returns an error if the address is configured
// to fail.
func (m *MockGateway) Send(_ context.Context, address string, payload corenotify.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAddrs[address] {
		return fmt.Errorf("delivery to %s failed", address)
	}
	m.Messages[address] = append(m.Messages[address], payload)
	return nil
}

// Sent returns the payloads recorded for the address.
func (m *MockGateway) Sent(address string) []corenotify.Payload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]corenotify.Payload(nil), m.Messages[address]...)
}

// Addresses returns every address that received at least one payload.
func (m *MockGateway) Addresses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Messages))
	for addr := range m.Messages {
		out = append(out, addr)
	}
	return out
}
