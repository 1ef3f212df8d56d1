package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateKey(t *testing.T) {
	valid := []string{"m1", "llama-3.2", "v20250101120000-abc123", "A_b"}
	for _, k := range valid {
		assert.NoError(t, ValidateKey("model", k), k)
	}

	invalid := []string{"", ".", "..", "../etc", "a/b", "-lead", "has space"}
	for _, k := range invalid {
		err := ValidateKey("model", k)
		assert.True(t, errors.Is(err, ErrInvalidInput), k)
	}
}

func TestCorpusVersion_Key(t *testing.T) {
	v := CorpusVersion{ModelKey: "m1", VersionID: "v1"}
	assert.Equal(t, "m1/v1", v.Key())
}
