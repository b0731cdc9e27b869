package agent

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// BuiltinPrefix marks a strategy reference that names an embedded script.
const BuiltinPrefix = "builtin:"

//go:embed strategies/*.lua
var strategyFS embed.FS

// Builtins lists the embedded strategy names.
func Builtins() []string {
	entries, err := fs.ReadDir(strategyFS, "strategies")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// LoadStrategy loads a Lua agent from a file path, or from an embedded
// script when ref is "builtin:<name>".
func LoadStrategy(ref string, opts ...LuaOption) (*Lua, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("strategy reference is required")
	}
	name, ok := strings.CutPrefix(ref, BuiltinPrefix)
	if !ok {
		return LoadLua(ref, opts...)
	}
	source, err := fs.ReadFile(strategyFS, path.Join("strategies", name+".lua"))
	if err != nil {
		return nil, fmt.Errorf("unknown builtin strategy %q (have %s)", name, strings.Join(Builtins(), ", "))
	}
	return NewLua(ref, string(source), opts...)
}
