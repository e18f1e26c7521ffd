package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/engramkit/engram/pkg/errors"
	"github.com/engramkit/engram/pkg/log"
)

// ErrFunctionNotFound is returned when ExecuteFunction is called with
// a name no loaded script defines.
var ErrFunctionNotFound = errors.New("lua function not found")

// LuaEngine implements the Engine interface on a single gopher-lua
// state. The state is not safe for concurrent use, so every call is
// serialized through a mutex.
type LuaEngine struct {
	state  *lua.LState
	config Config
	mutex  sync.Mutex
}

// NewLuaEngine creates a Lua engine with the given configuration.
func NewLuaEngine(config Config) (*LuaEngine, error) {
	var state *lua.LState
	if config.EnableSandboxing {
		state = lua.NewState(lua.Options{SkipOpenLibs: true})
		setupSandbox(state)
	} else {
		state = lua.NewState()
	}

	if config.MaxMemoryMB > 0 {
		state.SetMx(config.MaxMemoryMB)
	}

	registerAPIFunctions(state)

	log.Debug("Initialized Lua scripting engine",
		"sandboxed", config.EnableSandboxing,
		"timeout_ms", config.ScriptTimeoutMs,
	)

	return &LuaEngine{
		state:  state,
		config: config,
	}, nil
}

// LoadScript implements the Engine interface. The chunk is compiled
// and run immediately, so top-level function definitions become
// callable globals.
func (e *LuaEngine) LoadScript(name string, content []byte) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if err := e.state.DoString(string(content)); err != nil {
		return errors.Wrap(errors.ErrLuaExecution, "loading script %s (%v)", name, err)
	}

	log.Debug("Loaded Lua script", "name", name, "bytes", len(content))
	return nil
}

// LoadScriptFile implements the Engine interface.
func (e *LuaEngine) LoadScriptFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading script file %s: %w", path, err)
	}
	return e.LoadScript(filepath.Base(path), content)
}

// LoadScriptDir implements the Engine interface. Non-.lua entries are
// ignored; files load in directory order, so later scripts can
// redefine earlier functions.
func (e *LuaEngine) LoadScriptDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading script directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lua") {
			continue
		}
		if err := e.LoadScriptFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteFunction implements the Engine interface.
func (e *LuaEngine) ExecuteFunction(ctx context.Context, funcName string, args ...interface{}) (interface{}, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	fn := e.state.GetGlobal(funcName)
	if fn.Type() != lua.LTFunction {
		return nil, errors.Wrap(ErrFunctionNotFound, "executing %s", funcName)
	}

	e.bindContext(ctx)

	if e.config.ScriptTimeoutMs > 0 {
		timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(e.config.ScriptTimeoutMs)*time.Millisecond)
		defer cancel()
		e.state.SetContext(timeoutCtx)
		defer e.state.RemoveContext()
	}

	luaArgs := make([]lua.LValue, len(args))
	for i, arg := range args {
		luaArgs[i] = convertGoToLua(e.state, arg)
	}

	err := e.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, luaArgs...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrLuaExecution, "executing %s (%v)", funcName, err)
	}

	ret := e.state.Get(-1)
	e.state.Pop(1)

	return convertLuaToGo(ret), nil
}

// Close implements the Engine interface.
func (e *LuaEngine) Close() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.state.Close()
	return nil
}

// bindContext exposes the caller's context to scripts as a global ctx
// table. Only the deadline crosses the boundary; scripts cannot cancel
// Go contexts.
func (e *LuaEngine) bindContext(ctx context.Context) {
	table := e.state.NewTable()
	if deadline, ok := ctx.Deadline(); ok {
		table.RawSetString("deadline", lua.LNumber(deadline.Unix()))
	}
	e.state.SetGlobal("ctx", table)
}

// convertGoToLua converts a Go value into its Lua representation.
// Unrecognized types degrade to their string form rather than failing,
// since scripts are an optional extension point.
func convertGoToLua(L *lua.LState, value interface{}) lua.LValue {
	switch v := value.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case int:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	case string:
		return lua.LString(v)
	case time.Time:
		return lua.LNumber(v.Unix())
	case []string:
		table := L.NewTable()
		for _, item := range v {
			table.Append(lua.LString(item))
		}
		return table
	case []interface{}:
		table := L.NewTable()
		for _, item := range v {
			table.Append(convertGoToLua(L, item))
		}
		return table
	case map[string]interface{}:
		table := L.NewTable()
		for key, item := range v {
			table.RawSetString(key, convertGoToLua(L, item))
		}
		return table
	default:
		return lua.LString(fmt.Sprintf("%v", v))
	}
}

// convertLuaToGo converts a Lua value into a plain Go value. Tables
// with consecutive integer keys become slices, everything else becomes
// a map keyed by the string form of its keys.
func convertLuaToGo(value lua.LValue) interface{} {
	switch v := value.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		maxn := v.MaxN()
		if maxn == 0 {
			result := make(map[string]interface{})
			v.ForEach(func(key, val lua.LValue) {
				result[key.String()] = convertLuaToGo(val)
			})
			return result
		}
		result := make([]interface{}, 0, maxn)
		for i := 1; i <= maxn; i++ {
			result = append(result, convertLuaToGo(v.RawGetInt(i)))
		}
		return result
	default:
		return v.String()
	}
}
