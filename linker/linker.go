package linker

import (
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-emscripten/errors"
	"github.com/wippyai/wasm-emscripten/module"
)

// HostModule is the name under which host functions are instantiated.
// Guests never import from it directly.
const HostModule = "emscripten_host"

// WASINamespace is served by wazero's WASI host module and never
// synthesized.
const WASINamespace = "wasi_snapshot_preview1"

// Provided by wazero's emscripten exporter with whatever signature the
// guest declares.
const (
	InvokePrefix             = "invoke_"
	NotifyMemoryGrowthImport = "emscripten_notify_memory_growth"
)

// Options configures Link.
type Options struct {
	// Host maps env function names to the signatures the host provides.
	Host map[string]module.FuncType

	// Globals overrides integer global values by name. Unlisted names fall
	// back to DefaultGlobals, then zero.
	Globals map[string]int64

	// TrapMissing links unresolved functions to stubs that trap when called
	// instead of failing the link.
	TrapMissing bool
}

// Stub is an unresolved import linked to a trapping host function.
type Stub struct {
	Namespace string
	Name      string
	HostName  string
	Type      module.FuncType
}

// Plan is the result of linking a guest against the host.
type Plan struct {
	// Globals holds the integer value assigned to each imported global.
	Globals map[string]int64
	Modules []*SynthModule
	Stubs   []Stub
	Memory  module.MemoryBounds
	Table   module.TableBounds
}

// Dynamic reports whether name is an env function the emscripten exporter
// generates from the guest's own declaration.
func Dynamic(name string) bool {
	return strings.HasPrefix(name, InvokePrefix) || name == NotifyMemoryGrowthImport
}

// StubName is the host export name of the trapping stub for namespace.name.
func StubName(namespace, name string) string {
	return "stub:" + namespace + "." + name
}

// Link builds one synthetic module per non-WASI import namespace of d.
// The memory and table live in whichever namespace the guest imports them
// from. Functions are resolved only in env.
func Link(d *module.Descriptor, opts Options) (*Plan, error) {
	mem, err := module.ImportedMemoryBounds(d)
	if err != nil {
		return nil, err
	}
	table, err := module.ImportedTableBounds(d)
	if err != nil {
		return nil, err
	}

	meta, hasMeta := module.EmscriptenMetadata(d)
	values := DefaultGlobals(meta, hasMeta)
	for k, v := range opts.Globals {
		values[k] = v
	}

	plan := &Plan{
		Globals: make(map[string]int64),
		Memory:  mem,
		Table:   table,
	}
	byNS := make(map[string]*SynthModule)
	missing := make(map[string][]string)
	var order []string

	for _, imp := range d.Imports {
		if imp.Module == WASINamespace {
			continue
		}
		s, ok := byNS[imp.Module]
		if !ok {
			s = NewSynthModule(imp.Module, HostModule)
			byNS[imp.Module] = s
			order = append(order, imp.Module)
			plan.Modules = append(plan.Modules, s)
		}
		if s.Has(imp.Name) && sameImport(d, s, imp) {
			continue
		}

		switch imp.Desc.Kind {
		case module.KindFunc:
			ft, ok := d.FuncTypeOf(imp)
			if !ok {
				return nil, errors.InvalidData(errors.PhaseLink, []string{imp.Module, imp.Name}, "function import has no type")
			}
			var hostName string
			var found bool
			hostName, found, err = resolveFunc(imp, ft, opts.Host)
			if err != nil {
				return nil, err
			}
			if !found {
				if !opts.TrapMissing {
					missing[imp.Module] = append(missing[imp.Module], imp.Name)
					continue
				}
				hostName = StubName(imp.Module, imp.Name)
				plan.Stubs = append(plan.Stubs, Stub{Namespace: imp.Module, Name: imp.Name, HostName: hostName, Type: ft})
			}
			err = s.Reexport(imp.Name, hostName, ft)
		case module.KindMemory:
			err = s.DefineMemory(imp.Name, imp.Desc.Memory.Limits)
		case module.KindTable:
			err = s.DefineTable(imp.Name, *imp.Desc.Table)
		case module.KindGlobal:
			var init []byte
			init, err = globalInit(imp.Module, imp.Name, *imp.Desc.Global, values)
			if err == nil {
				err = s.DefineGlobal(imp.Name, *imp.Desc.Global, init)
				if isInteger(imp.Desc.Global.ValType) {
					plan.Globals[imp.Name] = values[imp.Name]
				}
			}
		default:
			err = errors.Unsupported(errors.PhaseLink, "tag import "+imp.Module+"."+imp.Name)
		}
		if err != nil {
			return nil, err
		}
	}

	for _, ns := range order {
		if names := missing[ns]; len(names) > 0 {
			slices.Sort(names)
			return nil, errors.NewMissingImportsError(ns, slices.Compact(names))
		}
	}
	for _, s := range plan.Modules {
		Logger().Debug("synthesized namespace",
			zap.String("namespace", s.Namespace()),
			zap.Int("exports", len(s.desc.Exports)))
	}
	for _, st := range plan.Stubs {
		Logger().Warn("unresolved import linked to trapping stub",
			zap.String("namespace", st.Namespace),
			zap.String("name", st.Name))
	}
	return plan, nil
}

// resolveFunc finds the host export serving an env function import.
func resolveFunc(imp module.Import, ft module.FuncType, host map[string]module.FuncType) (string, bool, error) {
	if imp.Module != module.EnvNamespace {
		return "", false, nil
	}
	if Dynamic(imp.Name) {
		return imp.Name, true, nil
	}
	want, ok := host[imp.Name]
	if !ok {
		return "", false, nil
	}
	if !want.Equal(ft) {
		return "", false, errors.New(errors.PhaseLink, errors.KindInvalidData).
			Path(imp.Module, imp.Name).
			Detail("guest expects %s, host provides %s", Signature(ft), Signature(want)).
			Build()
	}
	return imp.Name, true, nil
}

// sameImport reports whether imp duplicates an export already claimed in s
// with the same kind and, for functions, the same type.
func sameImport(d *module.Descriptor, s *SynthModule, imp module.Import) bool {
	for _, e := range s.desc.Exports {
		if e.Name != imp.Name {
			continue
		}
		if e.Kind != imp.Desc.Kind {
			return false
		}
		if e.Kind != module.KindFunc {
			return true
		}
		ft, ok := d.FuncTypeOf(imp)
		if !ok {
			return false
		}
		typeIdx := s.desc.Imports[e.Idx].Desc.TypeIdx
		return s.desc.Types[typeIdx].Equal(ft)
	}
	return false
}

func isInteger(t module.ValType) bool {
	return t == module.ValI32 || t == module.ValI64
}

// Signature formats ft as "(i32 i32) -> i32".
func Signature(ft module.FuncType) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range ft.Params {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p.String())
	}
	b.WriteString(") -> ")
	switch len(ft.Results) {
	case 0:
		b.WriteString("()")
	case 1:
		b.WriteString(ft.Results[0].String())
	default:
		b.WriteByte('(')
		for i, r := range ft.Results {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(r.String())
		}
		b.WriteByte(')')
	}
	return b.String()
}
