package config

import (
	"fmt"
	"os"
	"strconv"

	lua "github.com/yuin/gopher-lua"
	"gopkg.in/yaml.v3"
)

// loadLua evaluates a Lua project file. The script either returns a table or
// assigns one to the global "config". Only the base, table, string and math
// libraries are opened; env(name) exposes environment variables.
func loadLua(path string) (*Overrides, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	// Opening a library leaves its module table on the stack.
	L.SetTop(0)
	L.SetGlobal("env", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(os.Getenv(L.CheckString(1))))
		return 1
	}))

	if err := L.DoFile(path); err != nil {
		return nil, fmt.Errorf("failed to evaluate config script: %w", err)
	}

	result := lua.LValue(lua.LNil)
	if L.GetTop() > 0 {
		result = L.Get(-1)
	}
	if _, ok := result.(*lua.LTable); !ok {
		result = L.GetGlobal("config")
	}
	tbl, ok := result.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("config script must return a table or set the global 'config'")
	}

	// Round-trip through YAML so Lua and YAML files share one decoder.
	raw, err := yaml.Marshal(luaToGo(tbl, map[*lua.LTable]bool{}))
	if err != nil {
		return nil, fmt.Errorf("failed to encode config table: %w", err)
	}
	return decode(raw)
}

func luaToGo(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		defer delete(visited, v)
		return tableToGo(v, visited)
	default:
		return nil
	}
}

// tableToGo converts sequences with keys 1..n to slices and everything else to maps.
func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	n := t.Len()
	count := 0
	t.ForEach(func(_, _ lua.LValue) { count++ })

	if n > 0 && n == count {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = luaToGo(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = strconv.FormatFloat(float64(kv), 'f', -1, 64)
		default:
			key = k.String()
		}
		m[key] = luaToGo(v, visited)
	})
	return m
}
