package schema

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"
)

//go:embed schemas/*.yaml
var builtinFS embed.FS

// builtin lists the schemas shipped with the binary.
var builtin = []string{
	"herbs",
}

var (
	builtinMu    sync.Mutex
	builtinCache = make(map[string]*Schema)
)

// BuiltinNames returns the names of the built-in schemas, sorted.
func BuiltinNames() []string {
	names := make([]string, len(builtin))
	copy(names, builtin)
	sort.Strings(names)
	return names
}

// Builtin returns a built-in schema by name.
func Builtin(name string) (*Schema, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	builtinMu.Lock()
	defer builtinMu.Unlock()

	if s, ok := builtinCache[name]; ok {
		return s, nil
	}

	known := false
	for _, b := range builtin {
		if b == name {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("built-in schema not found: %s", name)
	}

	content, err := builtinFS.ReadFile(fmt.Sprintf("schemas/%s.yaml", name))
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", name, err)
	}
	s, err := Load(content)
	if err != nil {
		return nil, fmt.Errorf("built-in schema %s: %w", name, err)
	}
	builtinCache[name] = s
	return s, nil
}

// Herbs returns the built-in medicinal plant research-paper schema.
func Herbs() *Schema {
	s, err := Builtin("herbs")
	if err != nil {
		panic(err)
	}
	return s
}

// Resolve loads a schema from a YAML file path, or by built-in name when ref has
// no file extension. An empty ref selects the herbs schema.
func Resolve(ref string) (*Schema, error) {
	switch {
	case ref == "":
		return Builtin("herbs")
	case strings.HasSuffix(ref, ".yaml"), strings.HasSuffix(ref, ".yml"):
		return LoadFile(ref)
	default:
		return Builtin(ref)
	}
}
