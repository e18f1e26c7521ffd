package scripting

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramkit/engram/pkg/errors"
)

func newTestEngine(t *testing.T) *LuaEngine {
	t.Helper()
	engine, err := NewLuaEngine(DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestLuaEngine_LoadScript(t *testing.T) {
	engine := newTestEngine(t)

	err := engine.LoadScript("hooks.lua", []byte(`
		function before_add(memory)
			return memory
		end
	`))
	assert.NoError(t, err)

	err = engine.LoadScript("broken.lua", []byte(`
		function before_add(memory
			return memory
		end
	`))
	assert.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrLuaExecution)
}

func TestLuaEngine_ExecuteFunction(t *testing.T) {
	engine := newTestEngine(t)

	err := engine.LoadScript("hooks.lua", []byte(`
		function summarize(text, limit)
			return string.sub(text, 1, limit)
		end

		function tag_count(memory)
			return #memory.tags
		end

		function relabel(memory)
			memory.tags = {"reviewed"}
			return memory
		end

		function reject(memory)
			return false
		end
	`))
	require.NoError(t, err)

	t.Run("scalar arguments", func(t *testing.T) {
		result, err := engine.ExecuteFunction(context.Background(), "summarize", "redis runs on port 6379", 5)
		assert.NoError(t, err)
		assert.Equal(t, "redis", result)
	})

	t.Run("table argument", func(t *testing.T) {
		memory := map[string]interface{}{
			"text": "postgres pool maxes at 20",
			"tags": []string{"infra", "postgres"},
		}
		result, err := engine.ExecuteFunction(context.Background(), "tag_count", memory)
		assert.NoError(t, err)
		assert.Equal(t, float64(2), result)
	})

	t.Run("table return", func(t *testing.T) {
		memory := map[string]interface{}{
			"text": "postgres pool maxes at 20",
			"tags": []string{"infra"},
		}
		result, err := engine.ExecuteFunction(context.Background(), "relabel", memory)
		assert.NoError(t, err)

		replaced, ok := result.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "postgres pool maxes at 20", replaced["text"])
		assert.Equal(t, []interface{}{"reviewed"}, replaced["tags"])
	})

	t.Run("boolean return", func(t *testing.T) {
		result, err := engine.ExecuteFunction(context.Background(), "reject", map[string]interface{}{"text": "x"})
		assert.NoError(t, err)
		assert.Equal(t, false, result)
	})

	t.Run("unknown function", func(t *testing.T) {
		_, err := engine.ExecuteFunction(context.Background(), "no_such_hook")
		assert.ErrorIs(t, err, ErrFunctionNotFound)
	})

	t.Run("runtime error", func(t *testing.T) {
		err := engine.LoadScript("faulty.lua", []byte(`
			function faulty()
				error("hook blew up")
			end
		`))
		require.NoError(t, err)

		_, err = engine.ExecuteFunction(context.Background(), "faulty")
		assert.ErrorIs(t, err, errors.ErrLuaExecution)
	})
}

func TestLuaEngine_Sandboxing(t *testing.T) {
	engine := newTestEngine(t)

	err := engine.LoadScript("probe.lua", []byte(`
		function probe()
			local blocked = {}
			if os == nil then table.insert(blocked, "os") end
			if io == nil then table.insert(blocked, "io") end
			if require == nil then table.insert(blocked, "require") end
			if dofile == nil then table.insert(blocked, "dofile") end
			return table.concat(blocked, ",")
		end
	`))
	require.NoError(t, err)

	result, err := engine.ExecuteFunction(context.Background(), "probe")
	assert.NoError(t, err)
	assert.Equal(t, "os,io,require,dofile", result)
}

func TestLuaEngine_SandboxDisabled(t *testing.T) {
	engine, err := NewLuaEngine(Config{EnableSandboxing: false})
	require.NoError(t, err)
	defer engine.Close()

	err = engine.LoadScript("probe.lua", []byte(`
		function has_os()
			return os ~= nil
		end
	`))
	require.NoError(t, err)

	result, err := engine.ExecuteFunction(context.Background(), "has_os")
	assert.NoError(t, err)
	assert.Equal(t, true, result)
}

func TestLuaEngine_LoadScriptFile(t *testing.T) {
	engine := newTestEngine(t)

	path := filepath.Join(t.TempDir(), "hooks.lua")
	script := []byte(`
		function from_file()
			return "loaded"
		end
	`)
	require.NoError(t, os.WriteFile(path, script, 0o644))

	require.NoError(t, engine.LoadScriptFile(path))

	result, err := engine.ExecuteFunction(context.Background(), "from_file")
	assert.NoError(t, err)
	assert.Equal(t, "loaded", result)

	err = engine.LoadScriptFile(filepath.Join(t.TempDir(), "missing.lua"))
	assert.Error(t, err)
}

func TestLuaEngine_LoadScriptDir(t *testing.T) {
	engine := newTestEngine(t)

	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("10_base.lua", `
		function greeting()
			return "base"
		end
	`)
	write("20_override.lua", `
		function greeting()
			return "override"
		end
	`)
	write("notes.txt", "plain text, never parsed as Lua")

	require.NoError(t, engine.LoadScriptDir(dir))

	// Directory order is lexical, so the later script redefines greeting.
	result, err := engine.ExecuteFunction(context.Background(), "greeting")
	assert.NoError(t, err)
	assert.Equal(t, "override", result)

	err = engine.LoadScriptDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
