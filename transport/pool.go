package transport

import (
	"bufio"
	"io"
	"sync"

	"github.com/sid3xyz/slircd/wireproto"
)

// scannerPool and bufioWriterPool recycle the per-connection decode/
// encode buffers, the same pattern used for
// styxproto.Decoder and bufio.Writer in pool.go: a bounded number of
// long-lived connections means these buffers are worth reusing rather
// than letting the GC churn through them on every accept/close cycle.
var (
	scannerPool     sync.Pool
	bufioWriterPool sync.Pool
)

func newScanner(r io.Reader) *wireproto.Scanner {
	if v := scannerPool.Get(); v != nil {
		s := v.(*wireproto.Scanner)
		s.Reset(r)
		return s
	}
	return wireproto.NewScannerSize(r, wireproto.DefaultBufSize)
}

func putScanner(s *wireproto.Scanner) {
	s.Reset(nil)
	scannerPool.Put(s)
}

func newBufioWriter(w io.Writer) *bufio.Writer {
	if v := bufioWriterPool.Get(); v != nil {
		bw := v.(*bufio.Writer)
		bw.Reset(w)
		return bw
	}
	return bufio.NewWriterSize(w, wireproto.DefaultBufSize)
}

func putBufioWriter(w *bufio.Writer) {
	w.Reset(nil)
	bufioWriterPool.Put(w)
}
