// Package rtf extracts text from Rich Text Format documents.
package rtf

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles RTF documents.
type Normaliser struct{}

// New creates a new RTF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Formats returns the formats this normaliser handles.
func (n *Normaliser) Formats() []domain.Format {
	return []domain.Format{domain.FormatRTF}
}

// Normalise converts an RTF document to a normalised document.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if !bytes.HasPrefix(bytes.TrimSpace(raw.Content), []byte(`{\rtf`)) {
		return nil, domain.Errorf(domain.KindInvalidInput, "not an rtf document")
	}

	title, text := extract(raw.Content)
	return normalisers.NewDocument(raw, title, normalisers.CleanText(text)), nil
}

// destinations whose content is not document text.
var destinations = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true,
	"pict": true, "object": true, "header": true, "footer": true,
	"headerl": true, "headerr": true, "footerl": true, "footerr": true,
	"listtable": true, "listoverridetable": true, "revtbl": true,
	"rsidtbl": true, "generator": true, "xmlnstbl": true, "themedata": true,
	"colorschememapping": true, "latentstyles": true, "datastore": true,
	"fldinst": true, "filetbl": true, "pgdsctbl": true,
}

// group is the parser state saved on '{' and restored on '}'.
type group struct {
	skip    bool
	title   bool
	ucSkip  int // fallback characters after a \uN escape
	hasText bool
}

// parser converts an RTF byte stream into plain text.
type parser struct {
	in      []byte
	pos     int
	stack   []group
	cur     group
	out     strings.Builder
	title   strings.Builder
	pending int // fallback characters still to skip after \uN
}

func extract(data []byte) (string, string) {
	p := &parser{in: data, cur: group{ucSkip: 1}}
	p.run()
	return strings.TrimSpace(p.title.String()), p.out.String()
}

func (p *parser) run() {
	for p.pos < len(p.in) {
		c := p.in[p.pos]
		switch c {
		case '{':
			p.stack = append(p.stack, p.cur)
			p.cur.hasText = false
			p.pos++
		case '}':
			if n := len(p.stack); n > 0 {
				p.cur = p.stack[n-1]
				p.stack = p.stack[:n-1]
			}
			p.pos++
		case '\\':
			p.control()
		case '\r', '\n':
			p.pos++
		default:
			p.emit(rune(c))
			p.pos++
		}
	}
}

// control handles a backslash sequence.
func (p *parser) control() {
	p.pos++ // backslash
	if p.pos >= len(p.in) {
		return
	}
	c := p.in[p.pos]

	switch {
	case c == '\\' || c == '{' || c == '}':
		p.emit(rune(c))
		p.pos++
		return
	case c == '\'':
		p.pos++
		if p.pos+2 <= len(p.in) {
			if v, err := strconv.ParseUint(string(p.in[p.pos:p.pos+2]), 16, 8); err == nil {
				p.emit(cp1252(byte(v)))
			}
			p.pos += 2
		}
		return
	case c == '*':
		// {\*\dest ...} marks an optional destination.
		p.cur.skip = true
		p.pos++
		return
	case c == '~':
		p.emit(' ')
		p.pos++
		return
	case c == '-' || c == '_':
		p.pos++
		return
	case c == '\r' || c == '\n':
		p.write('\n')
		p.pos++
		return
	case !isLetter(c):
		p.pos++
		return
	}

	start := p.pos
	for p.pos < len(p.in) && isLetter(p.in[p.pos]) {
		p.pos++
	}
	word := string(p.in[start:p.pos])

	param, hasParam := 0, false
	numStart := p.pos
	if p.pos < len(p.in) && p.in[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.in) && p.in[p.pos] >= '0' && p.in[p.pos] <= '9' {
		p.pos++
	}
	if p.pos > numStart {
		if v, err := strconv.Atoi(string(p.in[numStart:p.pos])); err == nil {
			param, hasParam = v, true
		}
	}
	// A single space delimits the control word.
	if p.pos < len(p.in) && p.in[p.pos] == ' ' {
		p.pos++
	}

	p.word(word, param, hasParam)
}

func (p *parser) word(word string, param int, hasParam bool) {
	if destinations[word] && !p.cur.hasText {
		p.cur.skip = true
		return
	}

	switch word {
	case "title":
		p.cur.title = true
		p.cur.skip = false
	case "par", "line", "sect", "page", "row":
		p.write('\n')
	case "tab", "cell":
		p.write('\t')
	case "emdash":
		p.emit('—')
	case "endash":
		p.emit('–')
	case "bullet":
		p.emit('•')
	case "lquote":
		p.emit('‘')
	case "rquote":
		p.emit('’')
	case "ldblquote":
		p.emit('“')
	case "rdblquote":
		p.emit('”')
	case "uc":
		if hasParam {
			p.cur.ucSkip = param
		}
	case "u":
		if hasParam {
			if param < 0 {
				param += 65536
			}
			p.write(rune(param))
			p.pending = p.cur.ucSkip
		}
	}
}

// emit writes r unless it is a fallback character following \uN.
func (p *parser) emit(r rune) {
	if p.pending > 0 {
		p.pending--
		return
	}
	p.write(r)
}

// write sends r to the current destination.
func (p *parser) write(r rune) {
	p.cur.hasText = true
	switch {
	case p.cur.title:
		p.title.WriteRune(r)
	case !p.cur.skip:
		p.out.WriteRune(r)
	}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// cp1252 decodes a Windows-1252 byte; the 0x80-0x9F range differs from Latin-1.
func cp1252(b byte) rune {
	if r, ok := cp1252High[b]; ok {
		return r
	}
	return rune(b)
}

var cp1252High = map[byte]rune{
	0x80: '€', 0x82: '‚', 0x83: 'ƒ', 0x84: '„', 0x85: '…', 0x86: '†', 0x87: '‡',
	0x88: 'ˆ', 0x89: '‰', 0x8A: 'Š', 0x8B: '‹', 0x8C: 'Œ', 0x8E: 'Ž',
	0x91: '‘', 0x92: '’', 0x93: '“', 0x94: '”', 0x95: '•', 0x96: '–', 0x97: '—',
	0x98: '˜', 0x99: '™', 0x9A: 'š', 0x9B: '›', 0x9C: 'œ', 0x9E: 'ž', 0x9F: 'Ÿ',
}
