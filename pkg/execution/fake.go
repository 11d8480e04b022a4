/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: fake.go
Description: Scripted CommandRunner for exercising callers without real binaries.
*/

package execution

import (
	"context"
	"strings"
	"sync"
)

// FakeResponse is returned for a command line prefix
type FakeResponse struct {
	Output *Output
	Err    error
}

// FakeRunner records every command and answers from a prefix table
type FakeRunner struct {
	mu        sync.Mutex
	responses map[string]FakeResponse
	Calls     []Command
}

// NewFakeRunner creates an empty fake
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: make(map[string]FakeResponse)}
}

// On registers a response for every command whose rendered line starts with prefix
func (f *FakeRunner) On(prefix string, out *Output, err error) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = FakeResponse{Output: out, Err: err}
	return f
}

// Run returns the response with the longest matching prefix, or empty output
func (f *FakeRunner) Run(_ context.Context, cmd Command) (*Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, cmd)

	line := strings.Join(append([]string{cmd.Name}, cmd.Args...), " ")
	best := ""
	for prefix := range f.responses {
		if strings.HasPrefix(line, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if resp, ok := f.responses[best]; ok {
		return resp.Output, resp.Err
	}
	return &Output{}, nil
}

// Last returns the most recent command
func (f *FakeRunner) Last() Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Calls) == 0 {
		return Command{}
	}
	return f.Calls[len(f.Calls)-1]
}
