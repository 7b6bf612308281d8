package index

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ferropkg/ferrite/pkg/verify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSourcePackage(t *testing.T, sourceDir, dir string, manifest map[string]any, files map[string]string) {
	t.Helper()
	pkgDir := filepath.Join(sourceDir, dir)
	require.NoError(t, os.MkdirAll(filepath.Join(pkgDir, "files"), 0o755))

	data, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "manifest.json"), data, 0o644))

	for rel, content := range files {
		path := filepath.Join(pkgDir, "files", filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestGenerate(t *testing.T) {
	sourceDir := t.TempDir()
	outputDir := t.TempDir()

	writeSourcePackage(t, sourceDir, "tool-1.0.0",
		map[string]any{"name": "tool", "version": "1.0.0", "description": "a tool"},
		map[string]string{"bin/tool": "#!/bin/sh\necho tool\n"})
	writeSourcePackage(t, sourceDir, "lib-2.0.0",
		map[string]any{
			"name": "lib", "version": "2.0.0",
			"dependencies": []map[string]string{{"name": "tool", "constraint": ">= 1.0.0"}},
		},
		map[string]string{"lib/lib.so": "elf"})

	gen := &Generator{SourceDir: sourceDir, OutputDir: outputDir, BaseURL: "https://pkgs.example.com"}
	idx, err := gen.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, idx.Packages, 2)

	// Packages are processed in sorted directory order.
	lib := idx.Packages[0]
	assert.Equal(t, "lib@2.0.0", lib.ID())
	require.Len(t, lib.Dependencies, 1)
	assert.Equal(t, "tool", lib.Dependencies[0].Name)
	assert.Equal(t, "https://pkgs.example.com/lib_2.0.0.tar.gz", lib.URL)

	tool := idx.Packages[1]
	require.Len(t, tool.Files, 1)
	assert.Equal(t, "bin/tool", tool.Files[0].Path)

	// The archive exists and matches the recorded checksum.
	archivePath := filepath.Join(outputDir, "tool_1.0.0.tar.gz")
	sum, err := verify.HashFile(archivePath)
	require.NoError(t, err)
	assert.Equal(t, tool.Checksum, sum)
	assert.Greater(t, tool.Size, int64(0))

	// The written index parses back to the same content.
	loaded, err := ParseIndexFromFile(filepath.Join(outputDir, "index.json"))
	require.NoError(t, err)
	assert.Len(t, loaded.Packages, 2)
}

func TestGenerateRejectsIncompleteManifest(t *testing.T) {
	sourceDir := t.TempDir()
	writeSourcePackage(t, sourceDir, "broken",
		map[string]any{"name": "broken"}, // no version
		map[string]string{"f": "x"})

	gen := &Generator{SourceDir: sourceDir, OutputDir: t.TempDir(), BaseURL: "https://x"}
	_, err := gen.Generate(context.Background())
	assert.ErrorContains(t, err, "name and version")
}
