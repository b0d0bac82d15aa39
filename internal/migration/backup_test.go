package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"larder/internal/domain"
)

func TestBackupRoundTrip(t *testing.T) {
	original := domain.LocalSnapshot{
		AppState: &domain.LocalAppState{Name: "sam", SpiceLevel: "hot"},
		Pantry:   []domain.PantryItem{{Name: "rice"}, {Name: "olive oil"}},
		Ratings:  map[string]int{"r1": 5},
	}

	ciphertext, err := EncryptSnapshot("backup-key", original)
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "rice", "ciphertext must not leak plaintext")

	restored, err := DecryptSnapshot("backup-key", ciphertext)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestBackupNoncesDiffer(t *testing.T) {
	snap := domain.LocalSnapshot{Ratings: map[string]int{"r1": 4}}

	first, err := EncryptSnapshot("backup-key", snap)
	require.NoError(t, err)
	second, err := EncryptSnapshot("backup-key", snap)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestBackupWrongKey(t *testing.T) {
	ciphertext, err := EncryptSnapshot("backup-key", domain.LocalSnapshot{
		Ratings: map[string]int{"r1": 4},
	})
	require.NoError(t, err)

	_, err = DecryptSnapshot("other-key", ciphertext)
	assert.Error(t, err)
}

func TestBackupGarbageCiphertext(t *testing.T) {
	_, err := DecryptSnapshot("backup-key", "not base64!!")
	assert.Error(t, err)

	_, err = DecryptSnapshot("backup-key", "AAAA")
	assert.Error(t, err, "valid base64 shorter than a nonce must fail cleanly")
}
