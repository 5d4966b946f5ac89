// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package probe

import (
	"strings"

	"github.com/viant/parsly"
)

// Token codes start at 1 to stay clear of parsly.EOF.
const (
	separatorCode = iota + 1
	whitespaceCode
	quotedCode
	unterminatedCode
	openCode
	closeCode
	wordCode
)

const (
	quotes     = `"'`
	openers    = "{(["
	closers    = "})]"
	separators = ";\n"
	blanks     = " \t\r"
	special    = quotes + openers + closers + separators + blanks
)

var (
	separatorToken    = parsly.NewToken(separatorCode, "Separator", &byteSet{set: separators})
	whitespaceToken   = parsly.NewToken(whitespaceCode, "Whitespace", &blankMatcher{})
	quotedToken       = parsly.NewToken(quotedCode, "Quoted", &quotedMatcher{})
	unterminatedToken = parsly.NewToken(unterminatedCode, "Unterminated", &unterminatedMatcher{})
	openToken         = parsly.NewToken(openCode, "Open", &byteSet{set: openers})
	closeToken        = parsly.NewToken(closeCode, "Close", &byteSet{set: closers})
	wordToken         = parsly.NewToken(wordCode, "Word", &wordMatcher{})
)

// byteSet matches a single byte from set.
type byteSet struct {
	set string
}

func (m *byteSet) Match(cursor *parsly.Cursor) int {
	if cursor.Pos >= cursor.InputSize {
		return 0
	}
	if strings.IndexByte(m.set, cursor.Input[cursor.Pos]) < 0 {
		return 0
	}
	return 1
}

// blankMatcher matches spaces and tabs. Newlines are separators.
type blankMatcher struct{}

func (m *blankMatcher) Match(cursor *parsly.Cursor) int {
	i := cursor.Pos
	for i < cursor.InputSize && strings.IndexByte(blanks, cursor.Input[i]) >= 0 {
		i++
	}
	return i - cursor.Pos
}

// quotedMatcher matches a terminated single or double quoted string.
// Backslash escapes apply inside double quotes only.
type quotedMatcher struct{}

func (m *quotedMatcher) Match(cursor *parsly.Cursor) int {
	input, pos, size := cursor.Input, cursor.Pos, cursor.InputSize
	if pos >= size || strings.IndexByte(quotes, input[pos]) < 0 {
		return 0
	}
	q := input[pos]
	for i := pos + 1; i < size; i++ {
		switch {
		case input[i] == '\\' && q == '"':
			i++
		case input[i] == q:
			return i - pos + 1
		}
	}
	return 0
}

// unterminatedMatcher matches a quote that is never closed, up to the
// end of input.
type unterminatedMatcher struct{}

func (m *unterminatedMatcher) Match(cursor *parsly.Cursor) int {
	if cursor.Pos >= cursor.InputSize || strings.IndexByte(quotes, cursor.Input[cursor.Pos]) < 0 {
		return 0
	}
	return cursor.InputSize - cursor.Pos
}

// wordMatcher matches a run of ordinary bytes. A backslash takes the
// following byte literally.
type wordMatcher struct{}

func (m *wordMatcher) Match(cursor *parsly.Cursor) int {
	input, pos, size := cursor.Input, cursor.Pos, cursor.InputSize
	i := pos
	for i < size {
		c := input[i]
		if c == '\\' && i+1 < size {
			i += 2
			continue
		}
		if strings.IndexByte(special, c) >= 0 {
			break
		}
		i++
	}
	return i - pos
}
