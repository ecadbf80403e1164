package core

import (
	"context"
	"sync"
)

// Memory stores conversation history.
type Memory interface {
	// Add appends messages to the history.
	Add(msgs ...Message)

	// History returns a copy of all messages.
	History() []Message

	// LastN returns a copy of the last n messages.
	LastN(n int) []Message

	// Clear removes all messages.
	Clear()

	// Len returns the number of stored messages.
	Len() int
}

// InMemoryStore is a thread-safe in-memory Memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	messages []Message
}

// NewInMemoryStore creates a new in-memory conversation store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Add appends messages to the history.
func (m *InMemoryStore) Add(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msgs...)
}

// History returns a copy of all messages.
func (m *InMemoryStore) History() []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Message(nil), m.messages...)
}

// LastN returns the last n messages, or all of them if n exceeds the length.
func (m *InMemoryStore) LastN(n int) []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	if n > len(m.messages) {
		n = len(m.messages)
	}
	return append([]Message(nil), m.messages[len(m.messages)-n:]...)
}

// Clear removes all messages.
func (m *InMemoryStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}

// Len returns the number of stored messages.
func (m *InMemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}

// Conversation is a multi-turn chat session. The system prompt is held
// separately from the history so personas can be switched mid-session.
type Conversation struct {
	mu         sync.Mutex
	memory     Memory
	client     *Client
	model      ModelID
	system     string
	maxHistory int
	configure  func(*ChatBuilder)
}

// ConversationOption configures a Conversation.
type ConversationOption func(*Conversation)

// WithSystemMessage sets the initial system prompt.
func WithSystemMessage(system string) ConversationOption {
	return func(c *Conversation) {
		c.system = system
	}
}

// WithMemoryStore sets a custom memory store.
func WithMemoryStore(memory Memory) ConversationOption {
	return func(c *Conversation) {
		if memory != nil {
			c.memory = memory
		}
	}
}

// WithMaxHistory limits how many past messages are sent with each turn.
// Zero sends the full history.
func WithMaxHistory(n int) ConversationOption {
	return func(c *Conversation) {
		c.maxHistory = n
	}
}

// WithRequestOptions lets callers tune every request, e.g. temperature.
func WithRequestOptions(fn func(*ChatBuilder)) ConversationOption {
	return func(c *Conversation) {
		c.configure = fn
	}
}

// NewConversation creates a new conversation session.
func NewConversation(client *Client, model ModelID, opts ...ConversationOption) *Conversation {
	c := &Conversation{
		memory: NewInMemoryStore(),
		client: client,
		model:  model,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send appends a user message, asks the model, and records the reply.
// On failure the user message is not kept.
func (c *Conversation) Send(ctx context.Context, text string) (*ChatResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	user := Message{Role: RoleUser, Content: text}
	b := c.builder().Message(user)
	resp, err := b.GetResponse(ctx)
	if err != nil {
		return nil, err
	}
	c.memory.Add(user, resp.AssistantMessage())
	return resp, nil
}

// Stream is like Send but streams the reply. The history is updated once
// the stream completes successfully.
func (c *Conversation) Stream(ctx context.Context, text string, onDelta func(string)) (*ChatResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	user := Message{Role: RoleUser, Content: text}
	stream, err := c.builder().Message(user).Stream(ctx)
	if err != nil {
		return nil, err
	}
	if onDelta != nil {
		stream = tee(ctx, stream, onDelta)
	}
	resp, err := DrainStream(ctx, stream)
	if err != nil {
		return nil, err
	}
	c.memory.Add(user, resp.AssistantMessage())
	return resp, nil
}

func (c *Conversation) builder() *ChatBuilder {
	b := c.client.Chat(c.model)
	if c.system != "" {
		b.System(c.system)
	}
	if c.maxHistory > 0 {
		b.Messages(c.memory.LastN(c.maxHistory)...)
	} else {
		b.Messages(c.memory.History()...)
	}
	if c.configure != nil {
		c.configure(b)
	}
	return b
}

// tee calls fn for each delta while passing the stream through.
// After ctx is done the remaining deltas are drained and dropped.
func tee(ctx context.Context, s *ChatStream, fn func(string)) *ChatStream {
	out := make(chan ChatChunk)
	go func() {
		defer close(out)
		for chunk := range s.Ch {
			fn(chunk.Delta)
			select {
			case out <- chunk:
			case <-ctx.Done():
			}
		}
	}()
	return &ChatStream{Ch: out, Err: s.Err, Final: s.Final}
}

// SetSystem replaces the system prompt for subsequent turns.
func (c *Conversation) SetSystem(system string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.system = system
}

// System returns the current system prompt.
func (c *Conversation) System() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.system
}

// History returns the recorded turns, excluding the system prompt.
func (c *Conversation) History() []Message {
	return c.memory.History()
}

// Clear forgets all turns. The system prompt is kept.
func (c *Conversation) Clear() {
	c.memory.Clear()
}

// MessageCount returns the number of recorded messages.
func (c *Conversation) MessageCount() int {
	return c.memory.Len()
}
