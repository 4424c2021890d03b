package alphabet

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxRange is the largest number of symbols a single range item may expand to.
const MaxRange = 1 << 16

// Error describes an item that could not be parsed.
type Error struct {
	Item    string
	Message string
}

func (e *Error) Error() string {
	if e.Item == "" {
		return "alphabet: " + e.Message
	}
	return fmt.Sprintf("alphabet: item %q: %s", e.Item, e.Message)
}

func itemErr(item, format string, args ...any) *Error {
	return &Error{Item: item, Message: fmt.Sprintf(format, args...)}
}

var presets = map[string]func() []string{
	"lower":     func() []string { return runeRange('a', 'z') },
	"upper":     func() []string { return runeRange('A', 'Z') },
	"digits":    func() []string { return runeRange('0', '9') },
	"printable": func() []string { return runeRange(' ', '~') },
}

// Presets returns the preset names in sorted order.
func Presets() []string {
	return []string{"digits", "lower", "printable", "upper"}
}

// Parser parses expressions. Dir is the base for relative @file items; the
// empty string means the working directory.
type Parser struct {
	Dir string
}

// Parse parses expr with a Parser rooted at the working directory.
func Parse(expr string) ([]string, error) {
	return Parser{}.Parse(expr)
}

// Parse expands expr into an ordered list of distinct symbols.
func (p Parser) Parse(expr string) ([]string, error) {
	items, err := split(expr)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &Error{Message: "empty expression"}
	}

	var out []string
	seen := make(map[string]string)
	for _, it := range items {
		symbols, err := p.expand(it)
		if err != nil {
			return nil, err
		}
		for _, s := range symbols {
			s = norm.NFC.String(s)
			if prev, ok := seen[s]; ok {
				return nil, itemErr(it.raw, "symbol %q already given by %q", s, prev)
			}
			seen[s] = it.raw
			out = append(out, s)
		}
	}
	return out, nil
}

// item is one comma-separated element. text has escapes resolved; escaped
// marks items where a backslash was used, which are always literals.
type item struct {
	raw     string
	text    string
	escaped bool
}

func split(expr string) ([]item, error) {
	var items []item
	var raw, text strings.Builder
	escaped := false

	flush := func() error {
		it := item{raw: raw.String(), text: text.String(), escaped: escaped}
		raw.Reset()
		text.Reset()
		escaped = false
		if strings.TrimSpace(it.raw) == "" {
			return &Error{Message: "empty item"}
		}
		if !it.escaped {
			it.text = strings.TrimSpace(it.text)
		}
		items = append(items, it)
		return nil
	}

	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch {
		case c == '\\':
			if i+1 == len(expr) {
				return nil, &Error{Message: "trailing backslash"}
			}
			i++
			raw.WriteByte('\\')
			raw.WriteByte(expr[i])
			text.WriteByte(expr[i])
			escaped = true
		case c == ',':
			if err := flush(); err != nil {
				return nil, err
			}
		default:
			raw.WriteByte(c)
			text.WriteByte(c)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return items, nil
}

func (p Parser) expand(it item) ([]string, error) {
	if it.escaped {
		return []string{it.text}, nil
	}
	s := it.text
	switch {
	case len(s) > 1 && s[0] == ':':
		preset, ok := presets[s[1:]]
		if !ok {
			return nil, itemErr(it.raw, "unknown preset, want one of %s", strings.Join(Presets(), ", "))
		}
		return preset(), nil
	case len(s) > 1 && s[0] == '@':
		return p.file(it.raw, s[1:])
	}

	lo, hi, ok := strings.Cut(s, "-")
	if !ok || lo == "" || hi == "" {
		return []string{s}, nil
	}
	if isDigits(lo) && isDigits(hi) {
		return intRange(it.raw, lo, hi)
	}
	if utf8.RuneCountInString(lo) == 1 && utf8.RuneCountInString(hi) == 1 {
		a, _ := utf8.DecodeRuneInString(lo)
		b, _ := utf8.DecodeRuneInString(hi)
		if a > b {
			return nil, itemErr(it.raw, "range is reversed")
		}
		if int(b-a) >= MaxRange {
			return nil, itemErr(it.raw, "range exceeds %d symbols", MaxRange)
		}
		return runeRange(a, b), nil
	}
	return []string{s}, nil
}

func (p Parser) file(raw, name string) ([]string, error) {
	path := name
	if !filepath.IsAbs(path) && p.Dir != "" {
		path = filepath.Join(p.Dir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, itemErr(raw, "%v", err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, itemErr(raw, "reading %s: %v", path, err)
	}
	if len(out) == 0 {
		return nil, itemErr(raw, "%s has no symbols", path)
	}
	return out, nil
}

func intRange(raw, lo, hi string) ([]string, error) {
	a, err := strconv.Atoi(lo)
	if err != nil {
		return nil, itemErr(raw, "%v", err)
	}
	b, err := strconv.Atoi(hi)
	if err != nil {
		return nil, itemErr(raw, "%v", err)
	}
	if a > b {
		return nil, itemErr(raw, "range is reversed")
	}
	if b-a >= MaxRange {
		return nil, itemErr(raw, "range exceeds %d symbols", MaxRange)
	}

	width := 0
	if len(lo) > 1 && lo[0] == '0' {
		width = len(lo)
	}
	out := make([]string, 0, b-a+1)
	for n := a; n <= b; n++ {
		out = append(out, fmt.Sprintf("%0*d", width, n))
	}
	return out, nil
}

func runeRange(a, b rune) []string {
	out := make([]string, 0, b-a+1)
	for r := a; r <= b; r++ {
		out = append(out, string(r))
	}
	return out
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
