package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateExtractRoundTrip(t *testing.T) {
	sourceDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(sourceDir, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "bin", "tool"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "README"), []byte("readme"), 0o644))

	archivePath := filepath.Join(t.TempDir(), "pkg.tar.gz")
	m := NewManager()
	require.NoError(t, m.Create(context.Background(), sourceDir, archivePath))

	destDir := t.TempDir()
	require.NoError(t, m.ExtractAll(context.Background(), archivePath, destDir))

	data, err := os.ReadFile(filepath.Join(destDir, "bin", "tool"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", string(data))

	data, err = os.ReadFile(filepath.Join(destDir, "README"))
	require.NoError(t, err)
	assert.Equal(t, "readme", string(data))
}

func TestExtractAllMissingArchive(t *testing.T) {
	err := NewManager().ExtractAll(context.Background(), filepath.Join(t.TempDir(), "nope.tar.gz"), t.TempDir())
	assert.Error(t, err)
}

func TestSafeJoin(t *testing.T) {
	dest := t.TempDir()

	tests := []struct {
		name    string
		entry   string
		wantErr bool
	}{
		{name: "plain file", entry: "bin/tool", wantErr: false},
		{name: "dotted but inside", entry: "a/../b", wantErr: false},
		{name: "parent escape", entry: "../evil", wantErr: true},
		{name: "nested escape", entry: "a/../../evil", wantErr: true},
		{name: "absolute", entry: "/etc/passwd", wantErr: true},
		{name: "bare dotdot", entry: "..", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := safeJoin(dest, tt.entry)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			rel, err := filepath.Rel(dest, got)
			require.NoError(t, err)
			assert.NotContains(t, rel, "..")
		})
	}
}
