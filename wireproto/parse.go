package wireproto

import "bytes"

// Parse parses a single CRLF-stripped IRC line into its borrowed form.
// line must not contain the trailing line terminator. The returned
// MessageRef's byte fields are sub-slices of line; the caller must not
// mutate line, or call Clone, before it is done with the MessageRef.
//
// Parsing proceeds positionally: optional @tags
// (space-terminated), optional :prefix (space-terminated), a command
// token, then up to 15 parameters, the last of which may be
// colon-prefixed and contain spaces.
func Parse(line []byte) (MessageRef, error) {
	var ref MessageRef

	if len(line) > 0 && line[0] == '@' {
		tagBlock, rest, ok := cutSpace(line[1:])
		if len(tagBlock) > MaxTagLen {
			return ref, &ParseError{Err: ErrTagsTooLong, Line: line}
		}
		tags, err := parseTags(tagBlock)
		if err != nil {
			return ref, &ParseError{Err: err, Line: line}
		}
		ref.tags = tags
		if !ok {
			return ref, &ParseError{Err: ErrEmptyCommand, Line: line}
		}
		line = rest
	}

	line = skipSpaces(line)

	if len(line) > 0 && line[0] == ':' {
		prefixBlock, rest, ok := cutSpace(line[1:])
		if !ok {
			return ref, &ParseError{Err: ErrEmptyCommand, Line: line}
		}
		p, err := parsePrefix(prefixBlock)
		if err != nil {
			return ref, &ParseError{Err: err, Line: line}
		}
		ref.prefix = p
		line = rest
	}

	line = skipSpaces(line)

	cmd, rest := cutSpaceOrEnd(line)
	if len(cmd) == 0 {
		return ref, &ParseError{Err: ErrEmptyCommand, Line: line}
	}
	if !validCommandToken(cmd) {
		return ref, &ParseError{Err: ErrInvalidCommand, Line: line}
	}
	ref.command = cmd
	line = rest

	params, err := parseParams(line)
	if err != nil {
		return ref, &ParseError{Err: err, Line: line}
	}
	ref.params = params

	return ref, nil
}

func parseParams(line []byte) ([][]byte, error) {
	var params [][]byte
	for {
		line = skipSpaces(line)
		if len(line) == 0 {
			return params, nil
		}
		if len(params) == MaxParams-1 {
			// Final parameter: colon optional, consumes the rest
			// of the line verbatim (may itself be empty).
			if line[0] == ':' {
				line = line[1:]
			}
			params = append(params, line)
			return params, nil
		}
		if line[0] == ':' {
			params = append(params, line[1:])
			return params, nil
		}
		word, rest := cutSpaceOrEnd(line)
		params = append(params, word)
		line = rest
		if len(params) > MaxParams {
			return nil, ErrTooManyParams
		}
	}
}

func validCommandToken(cmd []byte) bool {
	if len(cmd) == 3 && isDigit(cmd[0]) && isDigit(cmd[1]) && isDigit(cmd[2]) {
		return true
	}
	if len(cmd) == 0 {
		return false
	}
	for _, c := range cmd {
		if !isAlpha(c) {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }

// skipSpaces advances past leading spaces, so consecutive spaces
// between parameters act as a single separator.
func skipSpaces(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] == ' ' {
		i++
	}
	return b[i:]
}

// cutSpaceOrEnd splits b at the first run of spaces, or at the end of
// b if there is none.
func cutSpaceOrEnd(b []byte) (head, tail []byte) {
	i := bytes.IndexByte(b, ' ')
	if i < 0 {
		return b, nil
	}
	return b[:i], b[i:]
}

// cutSpace splits b at the first space, returning ok=false if there is
// no space (meaning whatever followed the tag/prefix block is missing
// its terminator, and thus also the command that must follow it).
func cutSpace(b []byte) (head, tail []byte, ok bool) {
	i := bytes.IndexByte(b, ' ')
	if i < 0 {
		return b, nil, false
	}
	return b[:i], b[i:], true
}

func parsePrefix(b []byte) (*Prefix, error) {
	if len(b) == 0 {
		return nil, ErrInvalidPrefix
	}
	if bang := bytes.IndexByte(b, '!'); bang >= 0 {
		rest := b[bang+1:]
		user, host, _ := bytesCut(rest, '@')
		return &Prefix{Nick: string(b[:bang]), User: string(user), Host: string(host)}, nil
	}
	if at := bytes.IndexByte(b, '@'); at >= 0 {
		return &Prefix{Nick: string(b[:at]), Host: string(b[at+1:])}, nil
	}
	if bytes.IndexByte(b, '.') >= 0 {
		return &Prefix{Server: string(b)}, nil
	}
	return &Prefix{Nick: string(b)}, nil
}

func bytesCut(b []byte, sep byte) (before, after []byte, found bool) {
	i := bytes.IndexByte(b, sep)
	if i < 0 {
		return b, nil, false
	}
	return b[:i], b[i+1:], true
}

// parseTags parses the body of an @tags block (without the leading
// '@'), a semicolon-separated list of key[=value] pairs. Keys retain
// their client-prefix ('+') if present; values are unescaped per
// IRCv3: \: -> ';', \s -> ' ', \\ -> '\', \r -> CR, \n -> LF, and a
// backslash followed by any other character drops the backslash.
func parseTags(b []byte) ([]Tag, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var clientLen int
	var tags []Tag
	for _, part := range bytes.Split(b, []byte{';'}) {
		if len(part) == 0 {
			continue
		}
		key, val, hasVal := bytesCut(part, '=')
		t := Tag{Key: string(key), HasValue: hasVal}
		if hasVal {
			t.Value = unescapeTag(val)
		}
		if len(key) > 0 && key[0] == '+' {
			clientLen += len(part) + 1
		}
		tags = append(tags, t)
	}
	if clientLen > MaxClientTagLen {
		return nil, ErrClientTagsTooLong
	}
	return tags, nil
}

func unescapeTag(b []byte) string {
	if bytes.IndexByte(b, '\\') < 0 {
		return string(b)
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i == len(b)-1 {
			out = append(out, b[i])
			continue
		}
		i++
		switch b[i] {
		case ':':
			out = append(out, ';')
		case 's':
			out = append(out, ' ')
		case '\\':
			out = append(out, '\\')
		case 'r':
			out = append(out, '\r')
		case 'n':
			out = append(out, '\n')
		default:
			out = append(out, b[i])
		}
	}
	return string(out)
}
