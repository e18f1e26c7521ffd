package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/engramkit/engram/pkg/log"
)

// safeLibs is the subset of the Lua standard library open to scripts.
// io, os, debug and the package loader stay closed, so a script cannot
// reach the filesystem or the process environment.
var safeLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.StringLibName, lua.OpenString},
	{lua.TabLibName, lua.OpenTable},
	{lua.MathLibName, lua.OpenMath},
}

// setupSandbox opens the safe libraries on a state created with
// SkipOpenLibs and strips the chunk loaders the base library brings
// along.
func setupSandbox(L *lua.LState) {
	for _, lib := range safeLibs {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}

	L.SetGlobal("print", L.NewFunction(sandboxPrint))
}

// sandboxPrint routes Lua's print through the structured logger.
func sandboxPrint(L *lua.LState) int {
	top := L.GetTop()
	args := make([]interface{}, top)
	for i := 1; i <= top; i++ {
		args[i-1] = convertLuaToGo(L.Get(i))
	}
	log.Debug("Lua print", "args", args)
	return 0
}
