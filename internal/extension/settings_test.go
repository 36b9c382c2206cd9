package extension

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func settingsFixture(t *testing.T) (*RegistrationRecord, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	rec, err := repo.Create("ext", "Extension")
	require.NoError(t, err)
	return rec, repo
}

func TestSettingsRoundTrip(t *testing.T) {
	rec, repo := settingsFixture(t)

	s := NewSettings(rec, repo)
	s.Set("theme", "dark")
	s.Set("limit", "25")
	require.NoError(t, s.Save())

	reloaded := NewSettings(rec, repo)
	assert.Equal(t, "dark", reloaded.GetString("theme", ""))
	assert.Equal(t, "25", reloaded.GetString("limit", ""))
	assert.Equal(t, 2, reloaded.Len())
}

func TestSettingsLoadToleratesCorruptBlob(t *testing.T) {
	rec, repo := settingsFixture(t)
	rec.Settings = []byte("{definitely not json")

	s := NewSettings(rec, repo)
	assert.Equal(t, 0, s.Len(), "corrupt blob loads as empty")

	_, ok := s.Get("anything")
	assert.False(t, ok)
}

func TestSettingsLoadEmptyBlob(t *testing.T) {
	rec, repo := settingsFixture(t)

	s := NewSettings(rec, repo)
	assert.Equal(t, 0, s.Len())
}

func TestSettingsSaveIsFullReplace(t *testing.T) {
	rec, repo := settingsFixture(t)

	first := NewSettings(rec, repo)
	second := NewSettings(rec, repo)

	first.Set("from", "first")
	require.NoError(t, first.Save())

	// The second writer never saw the first's key; its save clobbers it.
	second.Set("from", "second")
	require.NoError(t, second.Save())

	reloaded := NewSettings(rec, repo)
	assert.Equal(t, "second", reloaded.GetString("from", ""))
	assert.Equal(t, 1, reloaded.Len())
}

func TestSettingsDefaults(t *testing.T) {
	rec, repo := settingsFixture(t)

	s := NewSettings(rec, repo)
	assert.Equal(t, "fallback", s.GetString("missing", "fallback"))

	s.Set("num", 7)
	assert.Equal(t, "fallback", s.GetString("num", "fallback"), "non-string value falls back")
}

func TestSettingsDelete(t *testing.T) {
	rec, repo := settingsFixture(t)

	s := NewSettings(rec, repo)
	s.Set("key", "value")
	s.Delete("key")
	require.NoError(t, s.Save())

	reloaded := NewSettings(rec, repo)
	assert.Equal(t, 0, reloaded.Len())
}

func TestSettingsRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		values := rapid.MapOf(
			rapid.StringMatching(`[a-zA-Z0-9_.-]{1,32}`),
			rapid.String(),
		).Draw(t, "values")

		repo := newMemoryRepo()
		rec, err := repo.Create("ext", "Extension")
		require.NoError(t, err)

		s := NewSettings(rec, repo)
		for k, v := range values {
			s.Set(k, v)
		}
		require.NoError(t, s.Save())

		reloaded := NewSettings(rec, repo)
		require.Equal(t, len(values), reloaded.Len())
		for k, v := range values {
			got, ok := reloaded.Get(k)
			require.True(t, ok)
			require.Equal(t, v, got)
		}
	})
}
