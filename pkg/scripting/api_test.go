package scripting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLuaAPI_Log(t *testing.T) {
	engine := newTestEngine(t)

	err := engine.LoadScript("log.lua", []byte(`
		function emit_logs()
			engram.log("debug", "probing the store")
			engram.log("info", "storing a memory")
			engram.log("warn", "tag list is long")
			engram.log("error", "hook failed")
			engram.log("chatty", "unknown levels fall back to info")
			return "ok"
		end
	`))
	require.NoError(t, err)

	// Nothing to assert on the log output here; the call must not raise.
	result, err := engine.ExecuteFunction(context.Background(), "emit_logs")
	assert.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestLuaAPI_Now(t *testing.T) {
	engine := newTestEngine(t)

	err := engine.LoadScript("now.lua", []byte(`
		function current_time()
			return engram.now()
		end
	`))
	require.NoError(t, err)

	result, err := engine.ExecuteFunction(context.Background(), "current_time")
	assert.NoError(t, err)

	ts, ok := result.(float64)
	require.True(t, ok)
	assert.InDelta(t, time.Now().Unix(), ts, 60)
}

func TestLuaAPI_FormatTime(t *testing.T) {
	engine := newTestEngine(t)

	// 1609459200 is 2021-01-01 00:00:00 UTC.
	err := engine.LoadScript("format.lua", []byte(`
		function default_format()
			return engram.format_time(1609459200)
		end

		function date_only()
			return engram.format_time(1609459200, "2006-01-02")
		end
	`))
	require.NoError(t, err)

	result, err := engine.ExecuteFunction(context.Background(), "default_format")
	assert.NoError(t, err)
	assert.Equal(t, "2021-01-01T00:00:00Z", result)

	result, err = engine.ExecuteFunction(context.Background(), "date_only")
	assert.NoError(t, err)
	assert.Equal(t, "2021-01-01", result)
}

func TestLuaAPI_UUID(t *testing.T) {
	engine := newTestEngine(t)

	err := engine.LoadScript("uuid.lua", []byte(`
		function fresh_id()
			local id1 = engram.uuid()
			local id2 = engram.uuid()

			if id1 == id2 then
				return "ids repeated"
			end
			if type(id1) ~= "string" or string.len(id1) ~= 36 then
				return "unexpected shape: " .. tostring(id1)
			end
			return "ok"
		end
	`))
	require.NoError(t, err)

	result, err := engine.ExecuteFunction(context.Background(), "fresh_id")
	assert.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestLuaAPI_JSON(t *testing.T) {
	engine := newTestEngine(t)

	err := engine.LoadScript("json.lua", []byte(`
		function roundtrip()
			local memory = {
				text = "redis runs on port 6379",
				score = 21,
				meta = { source = "shell" },
			}

			local encoded = engram.json_encode(memory)
			local decoded = engram.json_decode(encoded)

			return decoded.text .. "|" .. decoded.score .. "|" .. decoded.meta.source
		end

		function decode_invalid()
			local decoded, err = engram.json_decode("{not valid json")
			if decoded == nil and err ~= nil then
				return "decode failed as expected"
			end
			return "unexpected success"
		end
	`))
	require.NoError(t, err)

	// Values survive the round trip with their types intact.
	result, err := engine.ExecuteFunction(context.Background(), "roundtrip")
	assert.NoError(t, err)
	assert.Equal(t, "redis runs on port 6379|21|shell", result)

	// Invalid JSON reports an error value instead of raising.
	result, err = engine.ExecuteFunction(context.Background(), "decode_invalid")
	assert.NoError(t, err)
	assert.Equal(t, "decode failed as expected", result)
}

func TestLuaAPI_Context(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := newTestEngine(t)

	err := engine.LoadScript("ctx.lua", []byte(`
		function has_deadline()
			return ctx ~= nil and ctx.deadline ~= nil
		end
	`))
	require.NoError(t, err)

	result, err := engine.ExecuteFunction(ctx, "has_deadline")
	assert.NoError(t, err)
	assert.Equal(t, true, result)
}
