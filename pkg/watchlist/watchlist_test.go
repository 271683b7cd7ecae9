package watchlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad_HeaderFormat(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Akwesan GR 0,5.txt",
		"cena minimalna: 40zł\n12345678901\nhttps://allegro.pl/oferta/23456789012\n\n# comment\n12345678901\n")

	entries, errs, err := Load(Options{Dir: dir})
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, entries, 2, "duplicate IDs must be dropped")

	assert.Equal(t, "Akwesan GR 0,5", entries[0].Product)
	assert.Equal(t, "12345678901", entries[0].OfferID)
	assert.InDelta(t, 40.0, entries[0].MinPrice, 0.001)
	assert.Equal(t, "23456789012", entries[1].OfferID)
}

func TestLoad_PairFormat(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "starter.txt",
		"12345678901;39,99\n23456789012;1 250,00\n")

	entries, errs, err := Load(Options{Dir: dir})
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, entries, 2)

	assert.Equal(t, "starter", entries[0].Product)
	assert.InDelta(t, 39.99, entries[0].MinPrice, 0.001)
	assert.InDelta(t, 1250.0, entries[1].MinPrice, 0.001)
}

func TestLoad_BadHeaderIsPerFileError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.txt", "no header here\n12345678901\n")
	writeFile(t, dir, "good.txt", "cena minimalna: 10\n12345678901\n")

	entries, errs, err := Load(Options{Dir: dir})
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "bad.txt")
	require.Len(t, entries, 1)
	assert.Equal(t, "good", entries[0].Product)
}

func TestLoad_TargetFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.txt", "cena minimalna: 10\n12345678901\n")
	writeFile(t, dir, "two.txt", "cena minimalna: 20\n23456789012\n")

	entries, errs, err := Load(Options{Dir: dir, TargetFile: "TWO"})
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, entries, 1)
	assert.Equal(t, "two", entries[0].Product)

	_, _, err = Load(Options{Dir: dir, TargetFile: "missing"})
	assert.Error(t, err)
}

func TestLoad_IncludeGlob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "watch-a.txt", "cena minimalna: 10\n12345678901\n")
	writeFile(t, dir, "notes.txt", "cena minimalna: 10\n23456789012\n")

	entries, errs, err := Load(Options{Dir: dir, Include: "watch-*.txt"})
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, entries, 1)
	assert.Equal(t, "watch-a", entries[0].Product)
}

func TestLoad_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "empty.txt", "\n\n")

	entries, errs, err := Load(Options{Dir: dir})
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Empty(t, entries)
}

func TestExtractOfferID(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "12345678901", want: "12345678901"},
		{input: "https://allegro.pl/oferta/12345678901", want: "12345678901"},
		{input: "/oferta/12345678901?foo=bar", want: "12345678901"},
		{input: "1234567", wantErr: true}, // too short
		{input: "not an id", wantErr: true},
	}
	for _, tt := range tests {
		got, err := extractOfferID(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got)
	}
}
