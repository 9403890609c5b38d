// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package failures

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	log "github.com/golang/glog"
)

// Registry holds failure handlers and their current configuration.
type Registry struct {
	lock     sync.Mutex
	configs  map[string]json.RawMessage           // nil means nothing staged.
	handlers map[string]func(json.RawMessage) error // Key->Handler mapping.
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		configs:  make(map[string]json.RawMessage),
		handlers: make(map[string]func(json.RawMessage) error),
	}
}

// Register adds a handler under key. A key can only be registered once.
func (r *Registry) Register(key string, handler func(json.RawMessage) error) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.handlers[key]; ok {
		return fmt.Errorf("key %q is already registered", key)
	}
	r.handlers[key] = handler
	r.configs[key] = nil
	return nil
}

// Keys returns the registered keys in order.
func (r *Registry) Keys() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	keys := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value staged under key.
func (r *Registry) Get(key string) json.RawMessage {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.configs[key]
}

// MarshalJSON encodes the whole configuration.
func (r *Registry) MarshalJSON() ([]byte, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	return json.Marshal(r.configs)
}

// Apply replaces the configuration with the JSON object in body. Keys left out
// are reset.
func (r *Registry) Apply(body []byte) error {
	var updates map[string]json.RawMessage
	if err := json.Unmarshal(body, &updates); err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()

	for key := range updates {
		if _, ok := r.handlers[key]; !ok {
			return fmt.Errorf("key %q is not registered", key)
		}
	}
	for key, cur := range r.configs {
		next := updates[key]
		if isNull(next) {
			next = nil
		}
		if next == nil && cur == nil {
			continue
		}
		log.Infof("failures: %s set to %s", key, string(next))
		if err := r.handlers[key](next); err != nil {
			return err
		}
		r.configs[key] = next
	}
	return nil
}

// Stage sets a single key and leaves the others alone.
func (r *Registry) Stage(key string, value json.RawMessage) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	h, ok := r.handlers[key]
	if !ok {
		return fmt.Errorf("key %q is not registered", key)
	}
	if isNull(value) {
		value = nil
	}
	if err := h(value); err != nil {
		return err
	}
	r.configs[key] = value
	return nil
}

func isNull(v json.RawMessage) bool {
	return v == nil || string(v) == "null"
}
