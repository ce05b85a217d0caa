package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey_FloorSemantics(t *testing.T) {
	assert.Equal(t, "-1_0", Key(-1.0, 0.0, 512.0))
	assert.Equal(t, "0_0", Key(511.9, 0.0, 512.0))
	assert.Equal(t, "1_0", Key(512.0, 0.0, 512.0))
}

func TestKey_NegativeY(t *testing.T) {
	// Entity at [10.0, -5.0] with chunk_size 512 sits in "0_-1", not "0_0".
	assert.Equal(t, "0_-1", Key(10.0, -5.0, 512.0))
}

func TestKey_Deterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.Equal(t, Key(-1023.5, 767.25, 256.0), Key(-1023.5, 767.25, 256.0))
	}
	assert.Equal(t, "-4_2", Key(-1023.5, 767.25, 256.0))
}
