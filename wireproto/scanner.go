package wireproto

import (
	"bufio"
	"errors"
	"io"
)

// Design goals, ported from a 9P scanner's design:
//   - minimize allocations: MessageRef fields are slices into the
//     bufio.Reader's own buffer, valid only until the next Next call.
//   - resilient to malicious input: oversized lines are reported, not
//     fatal, and the scanner resynchronises on the next newline.
//   - streaming: a Scanner never buffers more than its configured
//     window, regardless of how much garbage a client sends.

// A Scanner reads a stream of CRLF- (or bare LF-) terminated IRC lines
// from an io.Reader and parses each into a MessageRef. A Scanner is
// not safe for concurrent use; callers should serialise access to a
// single Scanner, the same way a styx Conn has exactly one reader.
type Scanner struct {
	r   io.Reader
	br  *bufio.Reader
	cur MessageRef

	// curErr holds a per-line, non-fatal error (MessageTooLong,
	// a malformed message) for the line that Next just produced.
	// fatal holds a stream-level error (EOF, I/O failure) that ends
	// iteration; it is what Err returns.
	curErr error
	fatal  error
}

// NewScanner returns a Scanner with an internal buffer of
// DefaultBufSize bytes.
func NewScanner(r io.Reader) *Scanner {
	return NewScannerSize(r, DefaultBufSize)
}

// NewScannerSize returns a Scanner with an internal buffer of
// max(MinBufSize, bufsize) bytes. The buffer must be large enough to
// hold one full line (tags + body) or every line will be reported as
// MessageTooLong.
func NewScannerSize(r io.Reader, bufsize int) *Scanner {
	if bufsize < MinBufSize {
		bufsize = MinBufSize
	}
	return &Scanner{r: r, br: bufio.NewReaderSize(r, bufsize)}
}

// Reset discards any buffered data and reconfigures the Scanner to
// read from r. It exists so a Scanner can be recycled through a
// sync.Pool, the same way a connection pool recycles decoders.
func (s *Scanner) Reset(r io.Reader) {
	s.r = r
	s.br.Reset(r)
	s.cur = MessageRef{}
	s.curErr = nil
	s.fatal = nil
}

// PendingBytes returns a copy of any bytes the Scanner has already
// buffered from its reader but not yet consumed. A transport performing
// an in-place upgrade (STARTTLS) must splice these bytes back in front
// of the raw connection before wrapping it, or it will silently drop
// whatever the client pipelined right after the upgrade request - see
// so an in-place transport upgrade doesn't silently drop bytes
// the client already sent ahead of the upgrade.
func (s *Scanner) PendingBytes() []byte {
	n := s.br.Buffered()
	if n == 0 {
		return nil
	}
	b, _ := s.br.Peek(n)
	return append([]byte(nil), b...)
}

// Err returns the first fatal, stream-ending error encountered. It is
// nil if the stream ended with a clean EOF. Per-line errors (returned
// from Message) do not set Err and do not end iteration.
func (s *Scanner) Err() error {
	if s.fatal == io.EOF {
		return nil
	}
	return s.fatal
}

// Message returns the line most recently produced by Next, along with
// a non-fatal parse error if that line was malformed or over budget.
// The returned MessageRef is valid only until the next call to Next.
func (s *Scanner) Message() (MessageRef, error) {
	return s.cur, s.curErr
}

// Next reads and parses the next line from the underlying stream. It
// returns false when the stream ends or a fatal I/O error occurs; Err
// reports which. A true return means Message has a result, which may
// itself carry a recoverable parse error.
func (s *Scanner) Next() bool {
	if s.fatal != nil {
		return false
	}
	for {
		raw, err := s.br.ReadSlice('\n')
		if err != nil {
			if errors.Is(err, bufio.ErrBufferFull) {
				if derr := s.resync(); derr != nil {
					// Report the over-long line now; the next call ends iteration.
					s.fatal = derr
				}
				s.cur = MessageRef{}
				s.curErr = &ParseError{Err: ErrMessageTooLong, Line: raw}
				return true
			}
			if err == io.EOF {
				if len(raw) > 0 {
					// Stream closed mid-line.
					s.fatal = io.ErrUnexpectedEOF
				} else {
					s.fatal = io.EOF
				}
				return false
			}
			s.fatal = err
			return false
		}

		line := trimEOL(raw)
		if len(line) == 0 {
			continue // blank keepalive line; not an error, just skip it
		}
		if len(line) > MaxBodyLen+MaxTagLen {
			s.cur = MessageRef{}
			s.curErr = &ParseError{Err: ErrMessageTooLong, Line: line}
			return true
		}

		ref, perr := Parse(line)
		s.cur = ref
		s.curErr = perr
		return true
	}
}

// resync discards bytes from the underlying reader until the next
// newline is found (or the stream ends), so that a too-long line does
// not desynchronise the parser for every line that follows it.
func (s *Scanner) resync() error {
	for {
		_, err := s.br.ReadSlice('\n')
		if err == nil {
			return nil
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

// trimEOL strips a trailing "\r\n" or bare "\n" from a line returned
// by bufio.Reader.ReadSlice('\n').
func trimEOL(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	if n := len(b); n > 0 && b[n-1] == '\r' {
		b = b[:n-1]
	}
	return b
}
