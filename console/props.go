// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package console

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// Well-known session properties.
const (
	PromptProperty           = "PROMPT"
	ScopeProperty            = "SCOPE"
	SubshellProperty         = "SUBSHELL"
	ApplicationProperty      = "APPLICATION"
	UserProperty             = "USER"
	IgnoreInterruptsProperty = "karaf.ignoreInterrupts"
)

var errAlreadyBound = errors.New("console: properties already bound")

type bagState uint8

const (
	bagUnbound bagState = iota
	bagBound
)

// Properties is the session property bag. It starts unbound and keeps
// writes locally; Bind forwards every later access to a target store
// after replaying the buffered writes into it.
type Properties struct {
	mu     sync.RWMutex
	state  bagState
	local  map[string]any
	target PropertyStore
}

// NewProperties returns an unbound, empty bag.
func NewProperties() *Properties {
	return &Properties{local: make(map[string]any)}
}

// Get returns the value stored under name.
func (p *Properties) Get(name string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.state == bagBound {
		return p.target.Get(name)
	}
	v, ok := p.local[name]
	return v, ok
}

// Put stores value under name.
func (p *Properties) Put(name string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == bagBound {
		p.target.Put(name, value)
		return
	}
	p.local[name] = value
}

// Bind switches the bag to target. Buffered writes are replayed first.
func (p *Properties) Bind(target PropertyStore) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == bagBound {
		return errAlreadyBound
	}
	for k, v := range p.local {
		target.Put(k, v)
	}
	p.state, p.target, p.local = bagBound, target, nil
	return nil
}

// Bound reports whether Bind has run.
func (p *Properties) Bound() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state == bagBound
}

// Bool interprets the property as a boolean. Missing or unparsable
// values are false.
func (p *Properties) Bool(name string) bool {
	v, ok := p.Get(name)
	if !ok || v == nil {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		return err == nil && parsed
	default:
		parsed, err := strconv.ParseBool(fmt.Sprint(b))
		return err == nil && parsed
	}
}
