package linker

import (
	"github.com/wippyai/wasm-emscripten/errors"
	"github.com/wippyai/wasm-emscripten/module"
)

// SynthModule builds a code-free module that stands in for one guest import
// namespace. Functions are imported from the host module and re-exported
// unchanged; memories, tables and globals are defined locally so the guest
// can import them, which host modules cannot provide.
type SynthModule struct {
	desc       module.Descriptor
	exported   map[string]byte
	hostModule string
	namespace  string
	funcCount  uint32
}

// NewSynthModule creates a builder for namespace whose functions come from
// hostModule.
func NewSynthModule(namespace, hostModule string) *SynthModule {
	return &SynthModule{
		namespace:  namespace,
		hostModule: hostModule,
		exported:   make(map[string]byte),
	}
}

// Namespace returns the module name the guest imports from.
func (s *SynthModule) Namespace() string {
	return s.namespace
}

// Reexport imports hostName from the host module with type ft and exports
// it as name.
func (s *SynthModule) Reexport(name, hostName string, ft module.FuncType) error {
	if err := s.claim(name, module.KindFunc); err != nil {
		return err
	}
	s.desc.Imports = append(s.desc.Imports, module.Import{
		Module: s.hostModule,
		Name:   hostName,
		Desc:   module.ImportDesc{Kind: module.KindFunc, TypeIdx: s.typeIndex(ft)},
	})
	s.desc.Exports = append(s.desc.Exports, module.Export{Name: name, Kind: module.KindFunc, Idx: s.funcCount})
	s.funcCount++
	return nil
}

// DefineMemory adds a memory with limits l exported as name.
func (s *SynthModule) DefineMemory(name string, l module.Limits) error {
	if len(s.desc.Memories) > 0 {
		return errors.Unsupported(errors.PhaseLink, "more than one imported memory")
	}
	if err := s.claim(name, module.KindMemory); err != nil {
		return err
	}
	s.desc.Memories = append(s.desc.Memories, module.MemoryType{Limits: l})
	s.desc.Exports = append(s.desc.Exports, module.Export{Name: name, Kind: module.KindMemory})
	return nil
}

// DefineTable adds a table of type t exported as name.
func (s *SynthModule) DefineTable(name string, t module.TableType) error {
	if err := s.claim(name, module.KindTable); err != nil {
		return err
	}
	idx := uint32(len(s.desc.Tables))
	s.desc.Tables = append(s.desc.Tables, t)
	s.desc.Exports = append(s.desc.Exports, module.Export{Name: name, Kind: module.KindTable, Idx: idx})
	return nil
}

// DefineGlobal adds a global of type t initialized by the constant
// expression init and exports it as name.
func (s *SynthModule) DefineGlobal(name string, t module.GlobalType, init []byte) error {
	if err := s.claim(name, module.KindGlobal); err != nil {
		return err
	}
	idx := uint32(len(s.desc.Globals))
	s.desc.Globals = append(s.desc.Globals, module.Global{Type: t, Init: init})
	s.desc.Exports = append(s.desc.Exports, module.Export{Name: name, Kind: module.KindGlobal, Idx: idx})
	return nil
}

// Has reports whether name is already exported.
func (s *SynthModule) Has(name string) bool {
	_, ok := s.exported[name]
	return ok
}

// Descriptor returns the module built so far.
func (s *SynthModule) Descriptor() *module.Descriptor {
	return &s.desc
}

// Build encodes the module.
func (s *SynthModule) Build() []byte {
	return s.desc.Encode()
}

func (s *SynthModule) claim(name string, kind byte) error {
	if _, dup := s.exported[name]; dup {
		return errors.New(errors.PhaseLink, errors.KindInvalidData).
			Path(s.namespace, name).
			Detail("imported more than once with different kinds or types").
			Build()
	}
	s.exported[name] = kind
	return nil
}

func (s *SynthModule) typeIndex(ft module.FuncType) uint32 {
	for i, t := range s.desc.Types {
		if t.Equal(ft) {
			return uint32(i)
		}
	}
	s.desc.Types = append(s.desc.Types, ft)
	return uint32(len(s.desc.Types) - 1)
}
