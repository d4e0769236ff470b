// Package ingest scans ABC-style tune files into instances. Each tune keeps
// two forms: the full text as found in the input, whose digest identifies
// the instance, and a canonicized form reduced to the music-affecting
// content, whose digest identifies the song. Two transcriptions that differ
// only in comments, free-text headers or field ordering canonicize
// identically and therefore deduplicate into one song.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/tunedb/tunedb/pkg/utils"
)

// Tune is one parsed tune, ready to be stored as an instance.
type Tune struct {
	Number     int      // value of the X field
	Line       int      // input line at which the tune started
	Titles     []string // T fields in order of appearance
	FullText   string
	Canonical  string
	Digest     string // SHA-1 hex of FullText
	SongDigest string // SHA-1 hex of Canonical
}

// Warning reports a recoverable oddity in the input, such as a nested X
// field or a file ending mid-tune.
type Warning struct {
	Line    int
	Message string
}

// Header fields that affect the music itself and so belong in the canonical
// form; everything else (titles, sources, notes) is instance-only detail.
const canonicalHeaderFields = "LMmPUV"

// Fields that stay in the canonical body when they occur mid-tune.
const canonicalBodyFields = "KLMmPsUVWw"

type parserState int

const (
	stateFreetext parserState = iota
	stateHeader
	stateBody
)

type tuneBuilder struct {
	number       int
	line         int
	titles       []string
	full         []string
	musicHeaders []string // L, M, m, P, U, V headers in order of appearance
	keyHeaders   []string // K headers
	body         []string
}

// finish closes the tune the way the source format ends one, with a blank
// line, and assembles the canonical ordering: music headers sorted by field
// letter, then key signatures, then the body. The sort normalizes header
// order, so transcriptions differing only in L/M/P/U/V ordering canonicize
// identically; repeats of one field keep their order of appearance.
func (b *tuneBuilder) finish() Tune {
	b.full = append(b.full, "")
	b.body = append(b.body, "")

	sort.SliceStable(b.musicHeaders, func(i, j int) bool {
		return b.musicHeaders[i][0] < b.musicHeaders[j][0]
	})

	canonical := make([]string, 0, len(b.musicHeaders)+len(b.keyHeaders)+len(b.body))
	canonical = append(canonical, b.musicHeaders...)
	canonical = append(canonical, b.keyHeaders...)
	canonical = append(canonical, b.body...)

	fullText := strings.Join(b.full, "\n")
	canonText := strings.Join(canonical, "\n")
	return Tune{
		Number:     b.number,
		Line:       b.line,
		Titles:     b.titles,
		FullText:   fullText,
		Canonical:  canonText,
		Digest:     utils.SHA1Hex(fullText),
		SongDigest: utils.SHA1Hex(canonText),
	}
}

// ParseFile parses the tune file at path.
func ParseFile(path string) ([]Tune, []Warning, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening tune file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse scans r for tunes. A tune starts at an X field, collects headers
// until the key signature, then music until a blank line. Recoverable
// problems are reported as warnings rather than errors.
func Parse(r io.Reader) ([]Tune, []Warning, error) {
	var (
		tunes    []Tune
		warnings []Warning
		state    = stateFreetext
		b        *tuneBuilder
		lineNo   int
	)

	warn := func(msg string) {
		warnings = append(warnings, Warning{Line: lineNo, Message: msg})
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), " \t\r")

		if strings.HasPrefix(line, "%%") {
			continue // stylesheet directive
		}
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "%") {
			if state != stateFreetext {
				b.full = append(b.full, line)
			}
			continue
		}
		if line == "" {
			if state != stateFreetext {
				tunes = append(tunes, b.finish())
				b = nil
				state = stateFreetext
			}
			continue
		}

		code, _ := splitOffComment(line)
		code = strings.TrimRight(code, " \t")

		field := byte(0)
		if len(line) >= 2 && line[1] == ':' && isFieldLetter(line[0]) {
			field = line[0]
		}

		switch {
		case field == 'X':
			if state != stateFreetext {
				warn("subsequent X: field inside tune")
				b.full = append(b.full, line)
				continue
			}
			b = &tuneBuilder{
				number: leadingInt(strings.TrimSpace(code[2:])),
				line:   lineNo,
			}
			b.full = append(b.full, line)
			state = stateHeader

		case state == stateFreetext:
			// free text between tunes

		case field == 'T':
			b.titles = append(b.titles, strings.TrimSpace(code[2:]))
			b.full = append(b.full, line)

		case field == 'K':
			b.full = append(b.full, line)
			if state == stateHeader {
				b.keyHeaders = append(b.keyHeaders, code)
				state = stateBody
			} else {
				b.body = append(b.body, code)
			}

		case field != 0:
			b.full = append(b.full, line)
			if state == stateHeader && strings.ContainsRune(canonicalHeaderFields, rune(field)) {
				b.musicHeaders = append(b.musicHeaders, code)
			} else if state == stateBody && strings.ContainsRune(canonicalBodyFields, rune(field)) {
				b.body = append(b.body, code)
			}

		default: // music code
			b.full = append(b.full, line)
			if state == stateHeader {
				state = stateBody
			}
			b.body = append(b.body, code)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, warnings, fmt.Errorf("reading tune file: %w", err)
	}

	if state != stateFreetext {
		warn("unexpected end of file inside tune")
		tunes = append(tunes, b.finish())
	}
	return tunes, warnings, nil
}

func isFieldLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// splitOffComment splits a line at the first % that is not escaped with a
// backslash. The code part keeps escapes intact.
func splitOffComment(line string) (code, comment string) {
	for i := 0; i < len(line); i++ {
		if line[i] == '%' && (i == 0 || line[i-1] != '\\') {
			return line[:i], line[i:]
		}
	}
	return line, ""
}

func leadingInt(s string) int {
	n := 0
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}
