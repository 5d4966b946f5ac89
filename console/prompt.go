// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package console

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// DefaultPrompt is used when neither the PROMPT property nor the
	// branding supplies a template.
	DefaultPrompt = "\x1b[1m${USER}\x1b[0m@${APPLICATION}(${SUBSHELL})> "

	// FallbackPrompt replaces a template that cannot be resolved.
	FallbackPrompt = "$ "

	// ContinuationPrompt is shown for every physical line after the first.
	ContinuationPrompt = "> "

	continuationMarker = "\\"
	maxPromptRounds    = 64
)

var (
	promptVariable      = regexp.MustCompile(`\$\{([^}]+)\}`)
	errPromptUnresolved = errors.New("console: prompt does not converge")
)

// ResolvePrompt substitutes ${name} references in template with values
// from props. A substituted value may itself reference properties, so
// substitution repeats until nothing more resolves. Names without a value
// stay literal.
func ResolvePrompt(template string, props PropertyStore) (string, error) {
	for range maxPromptRounds {
		replaced := false
		for _, m := range promptVariable.FindAllStringSubmatch(template, -1) {
			v, ok := props.Get(m[1])
			if !ok || v == nil {
				continue
			}
			template = strings.ReplaceAll(template, m[0], fmt.Sprint(v))
			replaced = true
			break
		}
		if !replaced {
			return template, nil
		}
	}
	return "", errPromptUnresolved
}

// prompt returns the resolved primary prompt. The branding prompt is
// copied into PROMPT the first time it is used.
func (s *Session) prompt() string {
	template := DefaultPrompt
	if v, ok := s.props.Get(PromptProperty); ok && v != nil {
		template = fmt.Sprint(v)
	} else if s.brandPrompt != "" {
		template = s.brandPrompt
		s.props.Put(PromptProperty, template)
	}
	resolved, err := ResolvePrompt(template, s.props)
	if err != nil {
		s.log.Debug("prompt resolution failed")
		return FallbackPrompt
	}
	return resolved
}
