package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFixture(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	testContent := []byte("test fixture content")

	if err := os.WriteFile(testFile, testContent, 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	result := LoadFixture(t, testFile)
	if string(result) != string(testContent) {
		t.Errorf("expected %q, got %q", testContent, result)
	}
}

func TestLoadFixtureJSON(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.json")
	if err := os.WriteFile(testFile, []byte(`{"name":"test","value":42}`), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	var result struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}
	LoadFixtureJSON(t, testFile, &result)

	if result.Name != "test" || result.Value != 42 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestLoadRecords(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "rows.json")
	content := `[{"b":1,"a":"x"},{"a":"y"}]`
	if err := os.WriteFile(testFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	rows := LoadRecords(t, testFile)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if keys := rows[0].Keys(); len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Errorf("expected field order [b a], got %v", keys)
	}
}

func TestWriteGolden(t *testing.T) {
	tmpDir := t.TempDir()
	goldenFile := filepath.Join(tmpDir, "golden", "test.golden")
	testData := []byte("golden test data")

	WriteGolden(t, goldenFile, testData)

	result, err := os.ReadFile(goldenFile)
	if err != nil {
		t.Fatalf("failed to read golden file: %v", err)
	}

	if string(result) != string(testData) {
		t.Errorf("expected %q, got %q", testData, result)
	}
}

func TestCompareWithGolden(t *testing.T) {
	tmpDir := t.TempDir()
	goldenFile := filepath.Join(tmpDir, "compare.golden")

	// First call creates the file.
	CompareWithGolden(t, goldenFile, []byte("expected"))
	if _, err := os.Stat(goldenFile); err != nil {
		t.Fatalf("expected golden file to be created: %v", err)
	}

	// Second call compares against it.
	CompareWithGolden(t, goldenFile, []byte("expected"))
}

func TestPaths(t *testing.T) {
	if got, want := FixturePath("test.json"), filepath.Join("testdata", "test.json"); got != want {
		t.Errorf("FixturePath() = %q, want %q", got, want)
	}
	if got, want := GoldenPath("out.csv"), filepath.Join("testdata", "golden", "out.csv"); got != want {
		t.Errorf("GoldenPath() = %q, want %q", got, want)
	}
}
