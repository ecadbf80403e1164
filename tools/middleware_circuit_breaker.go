package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// CircuitState is the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // calls pass through
	CircuitOpen                         // calls are rejected
	CircuitHalfOpen                     // probing for recovery
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures WithCircuitBreaker.
type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive failures before opening
	SuccessThreshold int           // half-open successes before closing
	OpenDuration     time.Duration // time spent open before probing

	now func() time.Time
}

// DefaultCircuitBreakerConfig returns five failures, two successes and a
// thirty second open period.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenDuration:     30 * time.Second,
	}
}

// ErrCircuitOpen is returned while a tool's breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

type breaker struct {
	state       CircuitState
	failures    int
	successes   int
	lastFailure time.Time
}

// WithCircuitBreaker stops calling a tool after repeated failures. Each tool
// name gets its own breaker, so one failing tool does not block the rest of
// a registry.
func WithCircuitBreaker(config CircuitBreakerConfig) Middleware {
	if config.now == nil {
		config.now = time.Now
	}
	var (
		mu       sync.Mutex
		breakers = make(map[string]*breaker)
	)

	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			name := toolName(ctx)

			mu.Lock()
			b, ok := breakers[name]
			if !ok {
				b = &breaker{}
				breakers[name] = b
			}
			if b.state == CircuitOpen && config.now().Sub(b.lastFailure) >= config.OpenDuration {
				b.state = CircuitHalfOpen
				b.successes = 0
			}
			if b.state == CircuitOpen {
				mu.Unlock()
				return nil, fmt.Errorf("tool %s: %w", name, ErrCircuitOpen)
			}
			mu.Unlock()

			result, err := next(ctx, args)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				b.failures++
				b.lastFailure = config.now()
				if b.state == CircuitHalfOpen || b.failures >= config.FailureThreshold {
					b.state = CircuitOpen
				}
				return nil, err
			}

			if b.state == CircuitHalfOpen {
				b.successes++
				if b.successes >= config.SuccessThreshold {
					b.state = CircuitClosed
					b.failures = 0
				}
			} else {
				b.failures = 0
			}
			return result, nil
		}
	}
}
