package bridge

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/exp/slog"

	"github.com/salonpos/paxbridge/terminal"
)

var ErrNotFound = fmt.Errorf("not found")

type Registry struct {
	mu        sync.RWMutex
	terminals map[string]*terminal.Client
}

func NewRegistry() *Registry {
	return &Registry{
		terminals: make(map[string]*terminal.Client),
	}
}

func (r *Registry) Put(id string, client *terminal.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.terminals[id] = client
}

func (r *Registry) Get(id string) (*terminal.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.terminals[id]
	if !ok {
		return nil, fmt.Errorf("terminal %s: %w", id, ErrNotFound)
	}
	return client, nil
}

// List returns the terminal ids in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.terminals))
	for id := range r.terminals {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadRegistry builds a client for every configured terminal.
func LoadRegistry(logger *slog.Logger, cfg *Config, opts ...terminal.Option) (*Registry, error) {
	r := NewRegistry()
	for _, tc := range cfg.Terminals {
		client, err := terminal.NewClient(logger.With(slog.String("terminal", tc.ID)), cfg.terminalConfig(tc), opts...)
		if err != nil {
			return nil, fmt.Errorf("terminal %s: %w", tc.ID, err)
		}
		r.Put(tc.ID, client)
	}
	return r, nil
}
