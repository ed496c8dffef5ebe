// Package eventbus fans step updates out to in-process listeners keyed by token.
package eventbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Token identifies one local listener. Callers keep it to unregister.
type Token struct {
	id uuid.UUID
}

// NewToken mints a token that is unique for the life of the process.
func NewToken() Token {
	return Token{id: uuid.New()}
}

// String returns the token's identifier.
func (t Token) String() string {
	return t.id.String()
}

// Callback receives step updates.
type Callback func(count int64)

// Bus maps tokens to callbacks. The zero value is not usable; call New.
type Bus struct {
	mu        sync.RWMutex
	callbacks map[Token]Callback
	order     []Token
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{callbacks: make(map[Token]Callback)}
}

// Register binds cb to token. Registering a token twice is a programming error and panics.
func (b *Bus) Register(token Token, cb Callback) {
	if cb == nil {
		panic("eventbus: nil callback")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.callbacks[token]; exists {
		panic(fmt.Sprintf("eventbus: token %s already registered", token))
	}
	b.callbacks[token] = cb
	b.order = append(b.order, token)
}

// Unregister removes the callback bound to token, if any.
func (b *Bus) Unregister(token Token) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.callbacks[token]; !exists {
		return
	}
	delete(b.callbacks, token)
	for i, t := range b.order {
		if t == token {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of bound callbacks.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.callbacks)
}

// OnStepUpdate invokes every callback with count in registration order. A panicking
// callback propagates to the caller. Bus satisfies subscriber.Handle this way, so the
// whole bus can sit in the remote registry as a single subscriber.
func (b *Bus) OnStepUpdate(_ context.Context, count int64) error {
	b.mu.RLock()
	callbacks := make([]Callback, 0, len(b.order))
	for _, t := range b.order {
		callbacks = append(callbacks, b.callbacks[t])
	}
	b.mu.RUnlock()

	for _, cb := range callbacks {
		cb(count)
	}
	return nil
}
