package shdr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/masonhieb/shdredge/internal/domain"
)

// ParseDataSet parses the SHDR data-set grammar: space-separated key=value
// pairs where a value may be bare, "…" quoted with \" escapes, or {…} braced.
// A key with no value (or an explicit empty value) marks the key as removed.
// When table is set, braced values are parsed recursively as nested data sets.
func ParseDataSet(text string, table bool) (domain.DataSet, error) {
	set := domain.DataSet{}
	i := 0
	n := len(text)
	for i < n {
		for i < n && isSpace(text[i]) {
			i++
		}
		if i >= n {
			break
		}

		keyStart := i
		for i < n && text[i] != '=' && !isSpace(text[i]) {
			i++
		}
		key := text[keyStart:i]
		if key == "" {
			return nil, fmt.Errorf("data set: empty key at offset %d", keyStart)
		}

		if i >= n || isSpace(text[i]) {
			set[key] = domain.RemovedValue()
			continue
		}

		i++ // '='
		if i >= n || isSpace(text[i]) {
			set[key] = domain.RemovedValue()
			continue
		}

		switch text[i] {
		case '"', '\'':
			body, next, err := scanDelimited(text, i)
			if err != nil {
				return nil, err
			}
			set[key] = domain.StringValue(body)
			i = next
		case '{':
			body, next, err := scanBraced(text, i)
			if err != nil {
				return nil, err
			}
			if table {
				nested, err := ParseDataSet(body, false)
				if err != nil {
					return nil, err
				}
				set[key] = domain.DataSetValue(nested)
			} else {
				set[key] = domain.StringValue(body)
			}
			i = next
		default:
			start := i
			for i < n && !isSpace(text[i]) {
				i++
			}
			set[key] = inferScalar(text[start:i])
		}
	}
	return set, nil
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' }

// scanDelimited reads a quote-delimited value with backslash escapes for the
// delimiter, returning the body and the index after the closing quote.
func scanDelimited(text string, start int) (string, int, error) {
	quote := text[start]
	var b strings.Builder
	i := start + 1
	n := len(text)
	for i < n {
		c := text[i]
		if c == '\\' && i+1 < n && text[i+1] == quote {
			b.WriteByte(quote)
			i += 2
			continue
		}
		if c == quote {
			return b.String(), i + 1, nil
		}
		b.WriteByte(c)
		i++
	}
	return "", 0, fmt.Errorf("data set: unterminated %c quote at offset %d", quote, start)
}

// scanBraced reads a balanced {…} span, returning the inner text and the
// index after the closing brace.
func scanBraced(text string, start int) (string, int, error) {
	depth := 0
	n := len(text)
	for i := start; i < n; i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start+1 : i], i + 1, nil
			}
		}
	}
	return "", 0, fmt.Errorf("data set: unbalanced braces at offset %d", start)
}

func inferScalar(s string) domain.Value {
	if s == "" {
		return domain.RemovedValue()
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return domain.IntValue(v)
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return domain.DoubleValue(v)
	}
	return domain.StringValue(s)
}
