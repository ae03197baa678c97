package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventKeyMirrorsUniqueIndex(t *testing.T) {
	key := EventKey("epn_bz", "EPN-12345", "waiting")
	assert.Equal(t, "webhook:event:epn_bz:EPN-12345:waiting", key)
}

func TestEventKeyNormalizesInput(t *testing.T) {
	// статус приводится к нижнему регистру, как перед вставкой в БД
	assert.Equal(t,
		EventKey("epn_bz", "EPN-1", "waiting"),
		EventKey(" epn_bz ", " EPN-1 ", "WAITING"),
	)
}

func TestEventKeyEscapesSeparators(t *testing.T) {
	a := EventKey("epn_bz", "a:b", "waiting")
	b := EventKey("epn_bz", "a", "b:waiting")
	assert.NotEqual(t, a, b)
}
