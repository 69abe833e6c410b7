package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetState(t *testing.T) {
	t.Helper()
	reset := func() {
		CloseAll()
		optsMu.Lock()
		logsDir = ""
		opts = Options{}
		optsMu.Unlock()
	}
	reset()
	t.Cleanup(reset)
}

func TestAllCategoriesLog(t *testing.T) {
	resetState(t)
	ws := t.TempDir()

	require.NoError(t, Initialize(ws, Options{DebugMode: true, Level: "debug"}))
	assert.True(t, IsDebugMode())

	categories := []Category{
		CategoryBoot, CategorySession, CategoryAPI,
		CategoryRender, CategorySidebar, CategoryUI,
	}
	for _, cat := range categories {
		require.True(t, IsCategoryEnabled(cat), "category %s should be enabled", cat)
		l := Get(cat)
		l.Info("Test info message for %s", cat)
		l.Debug("Test debug message for %s", cat)
		l.Warn("Test warn message for %s", cat)
		l.Error("Test error message for %s", cat)
	}
	CloseAll()

	files, err := os.ReadDir(filepath.Join(ws, ".kitlab", "logs"))
	require.NoError(t, err)
	assert.Len(t, files, len(categories))

	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(ws, ".kitlab", "logs", f.Name()))
		require.NoError(t, err)
		assert.Contains(t, string(data), "Test info message")
		assert.Contains(t, string(data), "Test debug message")
	}
}

func TestProductionModeIsSilent(t *testing.T) {
	resetState(t)
	ws := t.TempDir()

	require.NoError(t, Initialize(ws, Options{DebugMode: false}))
	l := Get(CategoryAPI)
	assert.False(t, l.Enabled())
	l.Info("should go nowhere")

	_, err := os.Stat(filepath.Join(ws, ".kitlab", "logs"))
	assert.True(t, os.IsNotExist(err), "logs dir must not be created in production mode")
}

func TestCategoryFilter(t *testing.T) {
	resetState(t)
	ws := t.TempDir()

	require.NoError(t, Initialize(ws, Options{
		DebugMode:  true,
		Categories: map[string]bool{"api": false, "session": true},
	}))
	assert.False(t, IsCategoryEnabled(CategoryAPI))
	assert.True(t, IsCategoryEnabled(CategorySession))
	assert.True(t, IsCategoryEnabled(CategoryUI), "unlisted categories default to enabled")
	assert.False(t, Get(CategoryAPI).Enabled())
}

func TestLevelFilterAndJSON(t *testing.T) {
	resetState(t)
	ws := t.TempDir()

	require.NoError(t, Initialize(ws, Options{DebugMode: true, Level: "warn", JSONFormat: true}))
	l := WithRequestID(CategorySidebar, "req-123")
	l.Info("hidden info")
	l.Warn("visible warn")
	CloseAll()

	matches, err := filepath.Glob(filepath.Join(ws, ".kitlab", "logs", "*_sidebar.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)

	out := string(data)
	assert.NotContains(t, out, "hidden info")
	assert.Contains(t, out, "visible warn")
	assert.Contains(t, out, `"req":"req-123"`)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "{"), "expected JSON lines")
}

func TestInitializeRequiresWorkspace(t *testing.T) {
	resetState(t)
	assert.Error(t, Initialize("", Options{}))
}

func TestGetDuringInitialize(t *testing.T) {
	resetState(t)
	ws := t.TempDir()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Get(CategorySession).Debug("tick %d", j)
			}
		}()
	}
	require.NoError(t, Initialize(ws, Options{DebugMode: true, Level: "debug"}))
	wg.Wait()

	assert.True(t, Get(CategorySession).Enabled())
}
