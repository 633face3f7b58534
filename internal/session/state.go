// Package session holds the client secret obtained by the latest successful
// deploy of one node.
package session

import "go.uber.org/atomic"

// State is owned by exactly one node and is never persisted.
type State struct {
	secret *atomic.String
}

func New() *State {
	return &State{secret: atomic.NewString("")}
}

// Get returns the current secret and whether one is set.
func (s *State) Get() (string, bool) {
	v := s.secret.Load()
	return v, v != ""
}

// Set replaces the secret. Setting an empty value unsets it.
func (s *State) Set(secret string) {
	s.secret.Store(secret)
}

func (s *State) Clear() {
	s.secret.Store("")
}
