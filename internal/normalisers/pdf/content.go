package pdf

import (
	"strconv"
	"strings"
	"unicode/utf16"
)

// kerning offsets (thousandths of an em) below this in a TJ array are
// treated as word gaps.
const wordGap = -200

type tokenKind int

const (
	tokString tokenKind = iota
	tokNumber
	tokArray
	tokOperator
	tokOther
)

type token struct {
	kind  tokenKind
	text  string
	num   float64
	array []token
}

// ContentText decodes the text shown by a page content stream.
func ContentText(stream []byte) string {
	s := &scanner{buf: stream}
	var (
		out      strings.Builder
		line     strings.Builder
		operands []token
	)
	newline := func() {
		if t := strings.TrimSpace(line.String()); t != "" {
			out.WriteString(t)
			out.WriteByte('\n')
		}
		line.Reset()
	}

	for {
		tok, ok := s.next()
		if !ok {
			break
		}
		if tok.kind != tokOperator {
			operands = append(operands, tok)
			continue
		}

		switch tok.text {
		case "Tj":
			line.WriteString(lastString(operands))
		case "'", "\"":
			newline()
			line.WriteString(lastString(operands))
		case "TJ":
			if n := len(operands); n > 0 && operands[n-1].kind == tokArray {
				for _, el := range operands[n-1].array {
					switch el.kind {
					case tokString:
						line.WriteString(el.text)
					case tokNumber:
						if el.num < wordGap {
							line.WriteByte(' ')
						}
					}
				}
			}
		case "Td", "TD":
			if n := len(operands); n >= 2 && operands[n-1].kind == tokNumber && operands[n-1].num == 0 {
				line.WriteByte(' ')
			} else {
				newline()
			}
		case "T*", "Tm", "ET":
			newline()
		case "BI":
			s.skipInlineImage()
		}
		operands = operands[:0]
	}
	newline()
	return out.String()
}

func lastString(operands []token) string {
	for i := len(operands) - 1; i >= 0; i-- {
		if operands[i].kind == tokString {
			return operands[i].text
		}
	}
	return ""
}

type scanner struct {
	buf []byte
	pos int
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return isSpace(c)
}

func (s *scanner) next() (token, bool) {
	for s.pos < len(s.buf) {
		c := s.buf[s.pos]
		switch {
		case isSpace(c):
			s.pos++
		case c == '%':
			for s.pos < len(s.buf) && s.buf[s.pos] != '\n' && s.buf[s.pos] != '\r' {
				s.pos++
			}
		case c == '(':
			s.pos++
			return token{kind: tokString, text: decodeText(s.literal())}, true
		case c == '<' && s.peek(1) == '<':
			s.pos += 2
			return token{kind: tokOther}, true
		case c == '>' && s.peek(1) == '>':
			s.pos += 2
			return token{kind: tokOther}, true
		case c == '<':
			s.pos++
			return token{kind: tokString, text: decodeText(s.hex())}, true
		case c == '[':
			s.pos++
			return token{kind: tokArray, array: s.array()}, true
		case c == ']' || c == '{' || c == '}' || c == ')' || c == '>':
			s.pos++
			return token{kind: tokOther}, true
		case c == '/':
			s.pos++
			s.word()
			return token{kind: tokOther}, true
		default:
			w := s.word()
			if w == "" {
				s.pos++
				continue
			}
			if f, err := strconv.ParseFloat(w, 64); err == nil {
				return token{kind: tokNumber, num: f}, true
			}
			return token{kind: tokOperator, text: w}, true
		}
	}
	return token{}, false
}

func (s *scanner) peek(off int) byte {
	if s.pos+off < len(s.buf) {
		return s.buf[s.pos+off]
	}
	return 0
}

func (s *scanner) word() string {
	start := s.pos
	for s.pos < len(s.buf) && !isDelimiter(s.buf[s.pos]) {
		s.pos++
	}
	return string(s.buf[start:s.pos])
}

func (s *scanner) array() []token {
	var items []token
	for s.pos < len(s.buf) {
		for s.pos < len(s.buf) && isSpace(s.buf[s.pos]) {
			s.pos++
		}
		if s.pos < len(s.buf) && s.buf[s.pos] == ']' {
			s.pos++
			break
		}
		tok, ok := s.next()
		if !ok {
			break
		}
		items = append(items, tok)
	}
	return items
}

// literal reads a (string) body after the opening parenthesis.
func (s *scanner) literal() []byte {
	var out []byte
	depth := 1
	for s.pos < len(s.buf) {
		c := s.buf[s.pos]
		s.pos++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return out
			}
		case '\\':
			if s.pos >= len(s.buf) {
				return out
			}
			e := s.buf[s.pos]
			s.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if s.peek(0) == '\n' {
					s.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && s.pos < len(s.buf) && s.buf[s.pos] >= '0' && s.buf[s.pos] <= '7'; i++ {
						v = v*8 + int(s.buf[s.pos]-'0')
						s.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

// hex reads a <hex string> body after the opening angle bracket.
func (s *scanner) hex() []byte {
	var (
		out  []byte
		hi   byte
		half bool
	)
	for s.pos < len(s.buf) {
		c := s.buf[s.pos]
		s.pos++
		if c == '>' {
			break
		}
		v, ok := hexValue(c)
		if !ok {
			continue
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		out = append(out, hi<<4)
	}
	return out
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// skipInlineImage advances past the binary data of an inline image.
func (s *scanner) skipInlineImage() {
	idx := strings.Index(string(s.buf[s.pos:]), "ID")
	if idx < 0 {
		s.pos = len(s.buf)
		return
	}
	s.pos += idx + 2
	end := strings.Index(string(s.buf[s.pos:]), "EI")
	if end < 0 {
		s.pos = len(s.buf)
		return
	}
	s.pos += end + 2
}

// decodeText interprets string bytes as UTF-16BE when they carry a byte
// order mark and as a single-byte encoding otherwise.
func decodeText(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		units := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(units))
	}
	var sb strings.Builder
	for _, c := range b {
		if c < 0x20 && c != '\t' && c != '\n' {
			continue
		}
		sb.WriteRune(rune(c))
	}
	return sb.String()
}
