package chunk

import (
	"fmt"
	"math"
)

// Key maps a world-space planar position to its chunk key "{cx}_{cy}".
// Floor (not truncation) keeps negative coordinates in the right bucket:
// x=-1, size=512 belongs to chunk -1, not 0. Callers must not pass NaN/Inf;
// the builder filters those before calling.
func Key(x, y, size float64) string {
	cx := int64(math.Floor(x / size))
	cy := int64(math.Floor(y / size))
	return fmt.Sprintf("%d_%d", cx, cy)
}
