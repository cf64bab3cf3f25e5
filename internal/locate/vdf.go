package locate

import (
	"bufio"
	"io"
	"strconv"

	"gitlab.com/tozd/go/errors"
)

// KeyValues is a parsed Valve KeyValues document. Values are strings or
// nested KeyValues.
type KeyValues map[string]any

// Block returns the nested block under key
func (kv KeyValues) Block(key string) (KeyValues, bool) {
	b, ok := kv[key].(KeyValues)
	return b, ok
}

// String returns the string value under key
func (kv KeyValues) String(key string) string {
	s, _ := kv[key].(string)
	return s
}

// ParseKeyValues reads a libraryfolders.vdf or appmanifest_*.acf document
func ParseKeyValues(r io.Reader) (KeyValues, error) {
	p := &kvParser{r: bufio.NewReader(r)}
	root, err := p.block(false)
	if err != nil {
		return nil, errors.Errorf("vdf: %w", err)
	}
	return root, nil
}

type kvParser struct {
	r *bufio.Reader
}

const (
	tokString = iota
	tokOpen
	tokClose
	tokEOF
)

func (p *kvParser) block(nested bool) (KeyValues, error) {
	out := KeyValues{}
	for {
		kind, key, err := p.next()
		if err != nil {
			return nil, err
		}
		switch kind {
		case tokEOF:
			if nested {
				return nil, errors.New("unexpected end of input")
			}
			return out, nil
		case tokClose:
			if !nested {
				return nil, errors.New("unbalanced }")
			}
			return out, nil
		case tokOpen:
			return nil, errors.New("block without key")
		}

		kind, val, err := p.next()
		if err != nil {
			return nil, err
		}
		switch kind {
		case tokString:
			out[key] = val
		case tokOpen:
			inner, err := p.block(true)
			if err != nil {
				return nil, err
			}
			out[key] = inner
		default:
			return nil, errors.Errorf("missing value for %q", key)
		}
	}
}

func (p *kvParser) next() (int, string, error) {
	for {
		c, err := p.r.ReadByte()
		if err == io.EOF {
			return tokEOF, "", nil
		}
		if err != nil {
			return 0, "", err
		}
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '/':
			// line comment
			if next, _ := p.r.Peek(1); len(next) == 1 && next[0] == '/' {
				if _, err := p.r.ReadString('\n'); err != nil && err != io.EOF {
					return 0, "", err
				}
				continue
			}
			return p.bare(c)
		case '{':
			return tokOpen, "", nil
		case '}':
			return tokClose, "", nil
		case '"':
			return p.quoted()
		default:
			return p.bare(c)
		}
	}
}

func (p *kvParser) quoted() (int, string, error) {
	buf := []byte{'"'}
	for {
		c, err := p.r.ReadByte()
		if err == io.EOF {
			return 0, "", errors.New("unclosed quote")
		}
		if err != nil {
			return 0, "", err
		}
		buf = append(buf, c)
		if c == '\\' {
			n, err := p.r.ReadByte()
			if err != nil {
				return 0, "", errors.New("unclosed quote")
			}
			buf = append(buf, n)
			continue
		}
		if c == '"' {
			break
		}
	}
	s, err := strconv.Unquote(string(buf))
	if err != nil {
		// Steam writes Windows paths with doubled backslashes only
		return tokString, string(buf[1 : len(buf)-1]), nil
	}
	return tokString, s, nil
}

func (p *kvParser) bare(first byte) (int, string, error) {
	buf := []byte{first}
	for {
		c, err := p.r.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, "", err
		}
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '{' || c == '}' || c == '"' {
			if err := p.r.UnreadByte(); err != nil {
				return 0, "", err
			}
			break
		}
		buf = append(buf, c)
	}
	return tokString, string(buf), nil
}
