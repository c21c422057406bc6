package shaping

import (
	"sync"

	gtshaping "github.com/go-text/typesetting/shaping"
)

// shaperPool reuses HarfbuzzShaper instances, which carry internal buffers.
var shaperPool = sync.Pool{
	New: func() any { return &gtshaping.HarfbuzzShaper{} },
}
