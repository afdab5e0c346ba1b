package codec

import (
	"sync"

	"github.com/wippyai/tickcodec/codec/internal/wire"
)

const (
	// Pool limits to prevent memory bloat
	poolMaxCap  = 64 << 10 // max buffer bytes kept
	poolInitCap = 256
)

// writer pool for Encode
var writerPool = sync.Pool{
	New: func() any {
		return wire.NewWriter(make([]byte, 0, poolInitCap))
	},
}

func getWriter() *wire.Writer {
	return writerPool.Get().(*wire.Writer)
}

func putWriter(w *wire.Writer) {
	if w == nil || cap(w.Bytes()) > poolMaxCap {
		return // reject oversized
	}
	w.Reset(w.Bytes())
	writerPool.Put(w)
}
