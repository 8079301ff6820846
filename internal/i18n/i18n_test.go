// internal/i18n/i18n_test.go
package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestT(t *testing.T) {
	require.NoError(t, Initialize("en"))

	assert.Equal(t, "Found 3 matches", T("en", KeyMatchesComputed, 3))
	assert.Equal(t, "找到 3 個配對", T("zh_TW", KeyMatchesComputed, 3))
	assert.Equal(t, "Trade confirmed", T("fr", KeyTradeConfirmed), "falls back to default language")
	assert.Equal(t, "no.such.key", T("en", "no.such.key"))
	assert.True(t, IsSupported("zh_TW"))
	assert.False(t, IsSupported("fr"))
}

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"msgs/en.json": {Data: []byte(`{"greeting":"Hello %s"}`)},
		"msgs/de.json": {Data: []byte(`{}`)},
	}

	b, err := Load(fsys, "msgs", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"de", "en"}, b.Languages())
	assert.Equal(t, "Hello Ana", b.T("de", "greeting", "Ana"))

	_, err = Load(fsys, "msgs", "fr")
	assert.Error(t, err)

	fsys["msgs/bad.json"] = &fstest.MapFile{Data: []byte(`{`)}
	_, err = Load(fsys, "msgs", "en")
	assert.Error(t, err)
}
