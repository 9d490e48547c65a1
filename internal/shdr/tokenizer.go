// Package shdr implements the SHDR line protocol: tokenizing pipe-separated
// frames, peeling the leading timestamp, and mapping token streams onto the
// device model as observations and asset commands.
package shdr

import "strings"

// Tokenize splits a frame on unescaped '|' delimiters. A token that begins
// with '"' at a token boundary and closes with '"' at the next boundary is
// unquoted, and any \| inside it resolves to a literal pipe. A quote that
// never closes at a boundary gets no escape interpretation at all: the raw
// bytes split on every pipe. Empty tokens are preserved; unquoted token
// bodies are trimmed of surrounding spaces and tabs.
func Tokenize(line string) []string {
	var tokens []string
	i := 0
	n := len(line)
	for {
		j := i
		for j < n && (line[j] == ' ' || line[j] == '\t') {
			j++
		}
		if j < n && line[j] == '"' {
			if tok, next, ok := scanQuoted(line, j); ok {
				tokens = append(tokens, tok)
				if next >= n {
					return tokens
				}
				i = next + 1
				continue
			}
		}

		p := strings.IndexByte(line[i:], '|')
		if p < 0 {
			return append(tokens, strings.Trim(line[i:], " \t"))
		}
		tokens = append(tokens, strings.Trim(line[i:i+p], " \t"))
		i += p + 1
	}
}

// scanQuoted attempts to read a well-formed quoted token starting at the '"'
// at start. It returns the unescaped body and the index of the terminating
// delimiter (or end of line). ok is false when no closing quote sits at a
// token boundary.
func scanQuoted(line string, start int) (tok string, next int, ok bool) {
	var b strings.Builder
	n := len(line)
	k := start + 1
	for k < n {
		c := line[k]
		if c == '\\' && k+1 < n && line[k+1] == '|' {
			b.WriteByte('|')
			k += 2
			continue
		}
		if c == '"' {
			m := k + 1
			for m < n && (line[m] == ' ' || line[m] == '\t') {
				m++
			}
			if m >= n || line[m] == '|' {
				return b.String(), m, true
			}
		}
		b.WriteByte(c)
		k++
	}
	return "", 0, false
}
