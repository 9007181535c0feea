// Package llmtest provides a deterministic llm.Completer for tests.
package llmtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Call records one Complete invocation.
type Call struct {
	System string
	User   string
}

type rule struct {
	match    string
	response string
	err      error
	delay    time.Duration
	respond  func(system, user string) string
}

// Fake implements llm.Completer with canned responses. Rules are matched in the
// order they were added against the system and user prompt (substring match);
// unmatched calls get "Mock response for: <first line of user prompt>".
type Fake struct {
	mu    sync.RWMutex
	rules []rule
	calls []Call
}

// NewFake creates a new fake completer
func NewFake() *Fake {
	return &Fake{}
}

// AddResponse returns response for prompts containing match
func (f *Fake) AddResponse(match, response string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{match: match, response: response})
	return f
}

// AddFunc computes the response for prompts containing match
func (f *Fake) AddFunc(match string, respond func(system, user string) string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{match: match, respond: respond})
	return f
}

// AddError fails prompts containing match
func (f *Fake) AddError(match string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{match: match, err: err})
	return f
}

// AddDelay delays prompts containing match; the delay honours ctx cancellation
func (f *Fake) AddDelay(match string, delay time.Duration) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{match: match, delay: delay})
	return f
}

// CallCount returns the number of calls made to the fake
func (f *Fake) CallCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.calls)
}

// Calls returns a copy of every recorded call
func (f *Fake) Calls() []Call {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// LastCall returns the most recent call
func (f *Fake) LastCall() Call {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.calls) == 0 {
		return Call{}
	}
	return f.calls[len(f.calls)-1]
}

// Complete performs a mock completion
func (f *Fake) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{System: systemPrompt, User: userPrompt})
	rules := make([]rule, len(f.rules))
	copy(rules, f.rules)
	f.mu.Unlock()

	for _, r := range rules {
		if !strings.Contains(systemPrompt, r.match) && !strings.Contains(userPrompt, r.match) {
			continue
		}

		if r.delay > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(r.delay):
			}
			continue
		}
		if r.err != nil {
			return "", r.err
		}
		if r.respond != nil {
			return r.respond(systemPrompt, userPrompt), nil
		}
		return r.response, nil
	}

	first := strings.TrimSpace(userPrompt)
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	return fmt.Sprintf("Mock response for: %s", first), nil
}
