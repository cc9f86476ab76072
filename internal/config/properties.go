package config

import (
	"bufio"
	"io"
	"strings"

	"github.com/samber/oops"
)

// readProperties parses a Java properties file: key=value, key: value or
// key value pairs, # and ! comments, backslash line continuations and the
// usual escapes.
func readProperties(r io.Reader) (map[string]string, error) {
	props := make(map[string]string)
	scanner := bufio.NewScanner(r)

	var (
		pending strings.Builder
		lineNum int
	)
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if pending.Len() == 0 {
			line = strings.TrimLeft(line, " \t\f")
			if line == "" || line[0] == '#' || line[0] == '!' {
				continue
			}
		} else {
			line = strings.TrimLeft(line, " \t\f")
		}

		if continued(line) {
			pending.WriteString(line[:len(line)-1])
			continue
		}
		pending.WriteString(line)

		key, value := splitProperty(pending.String())
		props[key] = value
		pending.Reset()
	}
	if err := scanner.Err(); err != nil {
		return nil, oops.With("line", lineNum).Wrapf(err, "scanning properties")
	}

	if pending.Len() > 0 {
		key, value := splitProperty(pending.String())
		props[key] = value
	}
	return props, nil
}

// continued reports whether line ends in an odd number of backslashes.
func continued(line string) bool {
	n := 0
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

func splitProperty(line string) (string, string) {
	end := len(line)
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' {
			i++
			continue
		}
		if c == '=' || c == ':' || c == ' ' || c == '\t' || c == '\f' {
			end = i
			break
		}
	}

	key := unescapeProperty(line[:end])
	rest := strings.TrimLeft(line[end:], " \t\f")
	if rest != "" && (rest[0] == '=' || rest[0] == ':') {
		rest = strings.TrimLeft(rest[1:], " \t\f")
	}
	return key, unescapeProperty(rest)
}

func unescapeProperty(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'f':
			b.WriteByte('\f')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
