package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "inserted", OutcomeInserted.String())
	assert.Equal(t, "duplicate", OutcomeDuplicate.String())
	assert.Equal(t, "unavailable", OutcomeUnavailable.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
