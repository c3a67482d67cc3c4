package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	got := DedupeAndTrim([]string{"  TARJETA_CREDITO ", "HIPOTECARIO", "TARJETA_CREDITO", "", "   "})
	assert.Equal(t, []string{"TARJETA_CREDITO", "HIPOTECARIO"}, got)
}

func TestDedupeAndTrimEmpty(t *testing.T) {
	assert.Empty(t, DedupeAndTrim(nil))
	assert.Empty(t, DedupeAndTrim([]string{}))
}

func TestDedupeAndTrimPreservesOrder(t *testing.T) {
	got := DedupeAndTrim([]string{"c", "a", "b", "a", "c"})
	assert.Equal(t, []string{"c", "a", "b"}, got)
}
