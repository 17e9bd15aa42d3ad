package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteValueTuple(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	writeValueTuple(&sb, 0)
	sb.WriteString(", ")
	writeValueTuple(&sb, 1)

	assert.Equal(t, "($1, $2, $3, $4, $5, $6, $7), ($8, $9, $10, $11, $12, $13, $14)", sb.String())
}
