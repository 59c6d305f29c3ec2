package useragent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandom_ReturnsKnownAgent(t *testing.T) {
	all := All()
	for i := 0; i < 50; i++ {
		assert.Contains(t, all, Random())
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	all := All()
	all[0] = "changed"
	assert.NotEqual(t, "changed", All()[0])
}
