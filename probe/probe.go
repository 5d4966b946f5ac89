// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package probe decides whether console input forms a complete command
// and splits complete commands into statements and fields.
//
// A command is incomplete while a quote is open or a brace, bracket or
// parenthesis has no closer. A closer without an opener does not make a
// command incomplete: the evaluator reports it.
package probe

import (
	"errors"
	"strings"

	"github.com/viant/parsly"
)

// ErrUnterminated reports a quote that is never closed.
var ErrUnterminated = errors.New("probe: unterminated quote")

type lexeme struct {
	code int
	text string
}

func lex(text string) ([]lexeme, error) {
	cursor := parsly.NewCursor("", []byte(text), 0)
	var out []lexeme
	for cursor.Pos < cursor.InputSize {
		matched := cursor.MatchAny(separatorToken, whitespaceToken, quotedToken, unterminatedToken, openToken, closeToken, wordToken)
		switch matched.Code {
		case separatorCode, whitespaceCode, quotedCode, unterminatedCode, openCode, closeCode, wordCode:
			out = append(out, lexeme{code: matched.Code, text: matched.Text(cursor)})
		default:
			return out, cursor.NewError(wordToken)
		}
	}
	return out, nil
}

// Probe is the parser-backed completeness check for console sessions.
type Probe struct{}

// New returns a Probe.
func New() *Probe { return &Probe{} }

// IsComplete reports whether text can be evaluated as it stands.
func (*Probe) IsComplete(text string) (bool, error) {
	lexemes, err := lex(text)
	if err != nil {
		return false, err
	}
	var pending []byte
	for _, l := range lexemes {
		switch l.code {
		case unterminatedCode:
			return false, nil
		case openCode:
			pending = append(pending, closers[strings.IndexByte(openers, l.text[0])])
		case closeCode:
			if len(pending) == 0 || pending[len(pending)-1] != l.text[0] {
				return true, nil
			}
			pending = pending[:len(pending)-1]
		}
	}
	return len(pending) == 0, nil
}

// Statements splits text at semicolons and newlines outside quotes and
// brackets. Empty statements are dropped.
func Statements(text string) ([]string, error) {
	lexemes, err := lex(text)
	if err != nil {
		return nil, err
	}
	var (
		out   []string
		cur   strings.Builder
		depth int
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}
	for _, l := range lexemes {
		switch l.code {
		case separatorCode:
			if depth == 0 {
				flush()
				continue
			}
		case unterminatedCode:
			return nil, ErrUnterminated
		case openCode:
			depth++
		case closeCode:
			if depth > 0 {
				depth--
			}
		}
		cur.WriteString(l.text)
	}
	flush()
	return out, nil
}

// Fields splits one statement into arguments. Quotes are removed and
// adjacent pieces join into one field. A bracketed group is one field,
// kept verbatim.
func Fields(statement string) ([]string, error) {
	lexemes, err := lex(statement)
	if err != nil {
		return nil, err
	}
	var (
		out   []string
		cur   strings.Builder
		have  bool
		depth int
	)
	flush := func() {
		if have {
			out = append(out, cur.String())
		}
		cur.Reset()
		have = false
	}
	for _, l := range lexemes {
		if l.code == unterminatedCode {
			return nil, ErrUnterminated
		}
		if depth > 0 {
			switch l.code {
			case openCode:
				depth++
			case closeCode:
				depth--
			}
			cur.WriteString(l.text)
			continue
		}
		switch l.code {
		case whitespaceCode, separatorCode:
			flush()
		case quotedCode:
			cur.WriteString(unquote(l.text))
			have = true
		case wordCode:
			cur.WriteString(unescape(l.text))
			have = true
		case openCode:
			depth++
			cur.WriteString(l.text)
			have = true
		case closeCode:
			cur.WriteString(l.text)
			have = true
		}
	}
	flush()
	return out, nil
}

func unquote(s string) string {
	q, body := s[0], s[1:len(s)-1]
	if q == '\'' {
		return body
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			i++
			switch body[i] {
			case 'n':
				c = '\n'
			case 't':
				c = '\t'
			default:
				c = body[i]
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func unescape(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
