// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

// Package entitlement decides whether a subscriber may run identifications.
package entitlement

import (
	"context"
	"fmt"
	"strings"
)

// Header carries the caller's subscriber ID.
const Header = "X-Subscriber-ID"

// Checker answers the entitlement question for one subscriber.
type Checker interface {
	Entitled(ctx context.Context, subscriber string) bool
}

// Mode selects the Static policy.
type Mode string

const (
	// ModeOpen entitles everyone.
	ModeOpen Mode = "open"
	// ModeAllowlist entitles only the configured subscribers.
	ModeAllowlist Mode = "allowlist"
)

// Static is a Checker with a fixed policy.
type Static struct {
	mode    Mode
	allowed map[string]struct{}
}

// NewStatic builds a checker. An empty mode is treated as open.
func NewStatic(mode Mode, subscribers []string) (*Static, error) {
	switch mode {
	case "", ModeOpen:
		return &Static{mode: ModeOpen}, nil
	case ModeAllowlist:
		s := &Static{mode: ModeAllowlist, allowed: make(map[string]struct{}, len(subscribers))}
		for _, sub := range subscribers {
			if sub = strings.TrimSpace(sub); sub != "" {
				s.allowed[sub] = struct{}{}
			}
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown entitlement mode %q", mode)
	}
}

// Entitled implements Checker. Blank subscribers are never on an allowlist.
func (s *Static) Entitled(_ context.Context, subscriber string) bool {
	if s.mode == ModeOpen {
		return true
	}
	subscriber = strings.TrimSpace(subscriber)
	if subscriber == "" {
		return false
	}
	_, ok := s.allowed[subscriber]
	return ok
}
