// Package sqlrender turns recorded SQL statements into display strings.
//
// Binding substitution is textual and best-effort: placeholders are found by
// scanning for single-quoted literals rather than by parsing SQL, so a
// statement with unbalanced quotes can hide or expose placeholders. The
// output is for display only and is never executed.
package sqlrender

import (
	"regexp"
	"strings"

	"debugbar/internal/domain"
)

var newlineRun = regexp.MustCompile(`\s*\n\s*`)

// NormalizeStatement puts a recorded statement on a single line: every line
// is trimmed, blank lines are dropped, "--" comment lines become block
// comments and the result ends with exactly one semicolon. Normalizing an
// already normalized statement returns it unchanged.
func NormalizeStatement(sql string) string {
	lines := strings.Split(sql, "\n")
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "--") {
			line = "/* " + strings.TrimLeft(line, " -") + " */"
		}
		parts = append(parts, line)
	}
	return strings.TrimRight(strings.Join(parts, " "), " \t\r\n;") + ";"
}

// FormatSQL collapses escaped "??" placeholders outside literals to "?" and
// removes whitespace around line breaks.
func FormatSQL(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))
	scan(sql, func(i int, inLiteral bool) int {
		if !inLiteral && sql[i] == '?' && i+1 < len(sql) && sql[i+1] == '?' {
			b.WriteByte('?')
			return 2
		}
		b.WriteByte(sql[i])
		return 1
	})
	return strings.TrimSpace(newlineRun.ReplaceAllString(b.String(), "\n"))
}

// Render returns the display form of a statement. With embed set, bindings
// are substituted into their placeholders left to right, one placeholder
// per binding; surplus bindings are ignored and surplus placeholders are
// left as they are.
func Render(sql string, bindings []domain.Binding, embed bool) string {
	if embed && len(bindings) > 0 {
		for _, b := range CheckBindings(bindings) {
			start, end, ok := nextPlaceholder(sql, b.Name)
			if !ok {
				continue
			}
			sql = sql[:start] + Literal(b.Value) + sql[end:]
		}
	}
	return FormatSQL(sql)
}

// scan walks sql byte by byte, tracking whether the cursor is inside a
// single-quoted literal. visit returns how many bytes it consumed.
func scan(sql string, visit func(i int, inLiteral bool) int) {
	inLiteral := false
	for i := 0; i < len(sql); {
		c := sql[i]
		switch {
		case inLiteral && c == '\\' && i+1 < len(sql):
			visit(i, true)
			visit(i+1, true)
			i += 2
			continue
		case inLiteral && c == '\'':
			inLiteral = false
			i += visit(i, true)
			continue
		case !inLiteral && c == '\'':
			inLiteral = true
			i += visit(i, true)
			continue
		}
		i += visit(i, inLiteral)
	}
}

// nextPlaceholder finds the first placeholder outside literals for a
// binding. An empty name looks for a lone "?" (not part of "??"); otherwise
// ":name" not preceded by ':' and not followed by an identifier character.
func nextPlaceholder(sql, name string) (start, end int, ok bool) {
	name = strings.TrimPrefix(name, ":")
	scan(sql, func(i int, inLiteral bool) int {
		if ok || inLiteral {
			return 1
		}
		if name == "" {
			if sql[i] == '?' && (i == 0 || sql[i-1] != '?') && (i+1 == len(sql) || sql[i+1] != '?') {
				start, end, ok = i, i+1, true
			}
			return 1
		}
		if sql[i] != ':' || (i > 0 && sql[i-1] == ':') || !strings.HasPrefix(sql[i+1:], name) {
			return 1
		}
		j := i + 1 + len(name)
		if j == len(sql) || !isIdentByte(sql[j]) {
			start, end, ok = i, j, true
		}
		return 1
	})
	return start, end, ok
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
