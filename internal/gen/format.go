package gen

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ncruces/go-strftime"

	"github.com/roach88/tohu/internal/record"
)

// formatSpec is a parsed format specification:
//
//	[[fill]align][sign][z][#][0][width][grouping][.precision][type]
type formatSpec struct {
	fill      rune
	align     byte
	sign      byte
	alt       bool
	zero      bool
	width     int
	grouping  byte
	precision int
	typ       byte
}

func parseSpec(spec string) (formatSpec, error) {
	fs := formatSpec{fill: ' ', precision: -1}
	s := spec

	isAlign := func(b byte) bool { return b == '<' || b == '>' || b == '=' || b == '^' }
	if r, n := utf8.DecodeRuneInString(s); n > 0 && n < len(s) && isAlign(s[n]) {
		fs.fill, fs.align = r, s[n]
		s = s[n+1:]
	} else if len(s) > 0 && isAlign(s[0]) {
		fs.align = s[0]
		s = s[1:]
	}
	if len(s) > 0 && (s[0] == '+' || s[0] == '-' || s[0] == ' ') {
		fs.sign = s[0]
		s = s[1:]
	}
	if len(s) > 0 && s[0] == 'z' {
		s = s[1:]
	}
	if len(s) > 0 && s[0] == '#' {
		fs.alt = true
		s = s[1:]
	}
	if len(s) > 0 && s[0] == '0' {
		fs.zero = true
		s = s[1:]
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 {
		fs.width, _ = strconv.Atoi(s[:i])
		s = s[i:]
	}
	if len(s) > 0 && (s[0] == ',' || s[0] == '_') {
		fs.grouping = s[0]
		s = s[1:]
	}
	if len(s) > 0 && s[0] == '.' {
		i = 1
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i == 1 {
			return fs, fmt.Errorf("format specifier missing precision in %q", spec)
		}
		fs.precision, _ = strconv.Atoi(s[1:i])
		s = s[i:]
	}
	switch {
	case len(s) == 0:
	case len(s) == 1 && strings.IndexByte("bcdeEfFgGnosxX%", s[0]) >= 0:
		fs.typ = s[0]
	default:
		return fs, fmt.Errorf("invalid format specifier %q", spec)
	}
	if fs.zero && fs.align == 0 {
		fs.fill, fs.align = '0', '='
	}
	return fs, nil
}

// formatValue renders v with a format spec. Times are formatted
// with the spec as a strftime format.
func formatValue(v any, spec string) (string, error) {
	if t, ok := v.(time.Time); ok {
		if spec == "" {
			return record.Repr(t), nil
		}
		return strftime.Format(spec, t), nil
	}

	fs, err := parseSpec(spec)
	if err != nil {
		return "", err
	}

	switch val := v.(type) {
	case nil:
		return formatString("None", fs)
	case bool:
		if fs.typ == 0 || fs.typ == 's' {
			return formatString(record.Repr(val), fs)
		}
		if val {
			return formatInt(1, fs)
		}
		return formatInt(0, fs)
	case float64:
		return formatFloat(val, fs)
	case float32:
		return formatFloat(float64(val), fs)
	case string:
		return formatString(val, fs)
	case *record.Record:
		return formatString(val.String(), fs)
	}
	if n, ok := toInt(v); ok {
		return formatInt(n, fs)
	}
	return formatString(fmt.Sprint(v), fs)
}

func formatString(s string, fs formatSpec) (string, error) {
	if fs.typ != 0 && fs.typ != 's' {
		return "", fmt.Errorf("unknown format code '%c' for string", fs.typ)
	}
	if fs.sign != 0 {
		return "", fmt.Errorf("sign not allowed in string format specifier")
	}
	if fs.align == '=' {
		return "", fmt.Errorf("'=' alignment not allowed in string format specifier")
	}
	if fs.precision >= 0 && utf8.RuneCountInString(s) > fs.precision {
		s = string([]rune(s)[:fs.precision])
	}
	return pad("", s, fs, '<'), nil
}

func formatInt(n int64, fs formatSpec) (string, error) {
	switch fs.typ {
	case 'e', 'E', 'f', 'F', 'g', 'G', '%':
		return formatFloat(float64(n), fs)
	case 's':
		return "", fmt.Errorf("unknown format code 's' for integer")
	case 'c':
		return pad("", string(rune(n)), fs, '>'), nil
	}
	if fs.precision >= 0 {
		return "", fmt.Errorf("precision not allowed in integer format specifier")
	}

	neg := n < 0
	mag := uint64(n)
	if neg {
		mag = -mag
	}

	base, prefix, groupEvery := 10, "", 3
	switch fs.typ {
	case 'b':
		base, prefix, groupEvery = 2, "0b", 4
	case 'o':
		base, prefix, groupEvery = 8, "0o", 4
	case 'x':
		base, prefix, groupEvery = 16, "0x", 4
	case 'X':
		base, prefix, groupEvery = 16, "0X", 4
	}
	body := strconv.FormatUint(mag, base)
	if fs.typ == 'X' {
		body = strings.ToUpper(body)
	}
	if fs.grouping != 0 {
		body = group(body, groupEvery, fs.grouping)
	}
	if !fs.alt {
		prefix = ""
	}
	return pad(signOf(neg, fs.sign)+prefix, body, fs, '>'), nil
}

func formatFloat(f float64, fs formatSpec) (string, error) {
	neg := math.Signbit(f) && !math.IsNaN(f)
	abs := math.Abs(f)

	var body string
	switch fs.typ {
	case 0:
		if fs.precision < 0 {
			body = shortFloat(abs)
		} else {
			body = strconv.FormatFloat(abs, 'g', max(fs.precision, 1), 64)
			if !strings.ContainsAny(body, ".eIN") {
				body += ".0"
			}
		}
	case 'f', 'F':
		body = strconv.FormatFloat(abs, 'f', precisionOr(fs, 6), 64)
	case 'e', 'E':
		body = strconv.FormatFloat(abs, 'e', precisionOr(fs, 6), 64)
	case 'g', 'G', 'n':
		body = strconv.FormatFloat(abs, 'g', max(precisionOr(fs, 6), 1), 64)
	case '%':
		body = strconv.FormatFloat(abs*100, 'f', precisionOr(fs, 6), 64) + "%"
	default:
		return "", fmt.Errorf("unknown format code '%c' for float", fs.typ)
	}

	switch {
	case math.IsInf(abs, 1):
		body = "inf"
	case math.IsNaN(abs):
		body = "nan"
	}
	if fs.typ == 'E' || fs.typ == 'F' || fs.typ == 'G' {
		body = strings.ToUpper(body)
	}
	if fs.grouping != 0 && !math.IsInf(abs, 0) && !math.IsNaN(abs) {
		intPart, rest := body, ""
		if i := strings.IndexAny(body, ".e%"); i >= 0 {
			intPart, rest = body[:i], body[i:]
		}
		body = group(intPart, 3, fs.grouping) + rest
	}
	return pad(signOf(neg, fs.sign), body, fs, '>'), nil
}

// shortFloat renders a non-negative float in its shortest round-trip form,
// switching to exponent notation below 1e-4 and from 1e16.
func shortFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "inf"
	}
	if f != 0 && (f < 1e-4 || f >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func precisionOr(fs formatSpec, def int) int {
	if fs.precision < 0 {
		return def
	}
	return fs.precision
}

func signOf(neg bool, sign byte) string {
	switch {
	case neg:
		return "-"
	case sign == '+':
		return "+"
	case sign == ' ':
		return " "
	}
	return ""
}

// group inserts sep every n digits, counting from the right.
func group(digits string, n int, sep byte) string {
	if len(digits) <= n {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % n
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += n {
		if b.Len() > 0 {
			b.WriteByte(sep)
		}
		b.WriteString(digits[i : i+n])
	}
	return b.String()
}

func pad(prefix, body string, fs formatSpec, defaultAlign byte) string {
	n := fs.width - utf8.RuneCountInString(prefix) - utf8.RuneCountInString(body)
	if n <= 0 {
		return prefix + body
	}
	fill := strings.Repeat(string(fs.fill), n)
	align := fs.align
	if align == 0 {
		align = defaultAlign
	}
	switch align {
	case '<':
		return prefix + body + fill
	case '^':
		left := strings.Repeat(string(fs.fill), n/2)
		right := strings.Repeat(string(fs.fill), n-n/2)
		return left + prefix + body + right
	case '=':
		return prefix + fill + body
	default:
		return fill + prefix + body
	}
}
