package geoip

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNopLocator(t *testing.T) {
	var l Locator = NopLocator{}
	loc, err := l.Lookup("8.8.8.8")
	assert.Nil(t, loc)
	assert.ErrorIs(t, err, ErrNoLocation)
	assert.NoError(t, l.Close())
}

func TestOpenMissingDatabase(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.mmdb"))
	assert.Error(t, err)
}
