package wasmgen

// WebAssembly binary format magic number ("\0asm") and version.
const (
	Magic   uint32 = 0x6D736100
	Version uint32 = 0x01
)

// Section IDs in the order they must appear.
const (
	sectionType     byte = 1
	sectionImport   byte = 2
	sectionFunction byte = 3
	sectionMemory   byte = 5
	sectionGlobal   byte = 6
	sectionExport   byte = 7
	sectionCode     byte = 10
)

// Export descriptor kinds.
const (
	KindFunc   byte = 0
	KindMemory byte = 2
	KindGlobal byte = 3
)

// ValType is a core value type.
type ValType byte

const (
	I32 ValType = 0x7F
	I64 ValType = 0x7E
)

const funcTypeByte = 0x60

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Import is a function import. Imported functions take the lowest function indices.
type Import struct {
	Module string
	Name   string
	Type   uint32
}

// Func is a defined function. Locals excludes parameters.
type Func struct {
	Locals []ValType
	Body   *Code
	Type   uint32
}

// Memory describes the single linear memory in 64 KiB pages.
type Memory struct {
	Min    uint32
	Max    uint32
	HasMax bool
}

// Global is an i32 global with a constant initializer.
type Global struct {
	Init    int32
	Mutable bool
}

// Export exposes a function, memory or global by name.
type Export struct {
	Name  string
	Kind  byte
	Index uint32
}

// Module is a core WebAssembly module under construction.
type Module struct {
	Memory  *Memory
	Types   []FuncType
	Imports []Import
	Funcs   []Func
	Globals []Global
	Exports []Export
}

// FuncIndex returns the function index of the i-th defined function.
func (m *Module) FuncIndex(i int) uint32 {
	return uint32(len(m.Imports) + i)
}

// Encode encodes the module to WebAssembly binary format
func (m *Module) Encode() []byte {
	var w writer

	w.u32le(Magic)
	w.u32le(Version)

	if len(m.Types) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Types)))
		for _, ft := range m.Types {
			sec.byte(funcTypeByte)
			writeValTypes(&sec, ft.Params)
			writeValTypes(&sec, ft.Results)
		}
		writeSection(&w, sectionType, sec.bytes())
	}

	if len(m.Imports) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			sec.name(imp.Module)
			sec.name(imp.Name)
			sec.byte(KindFunc)
			sec.u32(imp.Type)
		}
		writeSection(&w, sectionImport, sec.bytes())
	}

	if len(m.Funcs) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Funcs)))
		for _, f := range m.Funcs {
			sec.u32(f.Type)
		}
		writeSection(&w, sectionFunction, sec.bytes())
	}

	if m.Memory != nil {
		var sec writer
		sec.u32(1)
		if m.Memory.HasMax {
			sec.byte(0x01)
			sec.u32(m.Memory.Min)
			sec.u32(m.Memory.Max)
		} else {
			sec.byte(0x00)
			sec.u32(m.Memory.Min)
		}
		writeSection(&w, sectionMemory, sec.bytes())
	}

	if len(m.Globals) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Globals)))
		for _, g := range m.Globals {
			sec.byte(byte(I32))
			if g.Mutable {
				sec.byte(0x01)
			} else {
				sec.byte(0x00)
			}
			sec.byte(opI32Const)
			sec.s32(g.Init)
			sec.byte(opEnd)
		}
		writeSection(&w, sectionGlobal, sec.bytes())
	}

	if len(m.Exports) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Exports)))
		for _, e := range m.Exports {
			sec.name(e.Name)
			sec.byte(e.Kind)
			sec.u32(e.Index)
		}
		writeSection(&w, sectionExport, sec.bytes())
	}

	if len(m.Funcs) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Funcs)))
		for _, f := range m.Funcs {
			var body writer
			writeLocals(&body, f.Locals)
			body.raw(f.Body.Bytes())
			sec.u32(uint32(len(body.bytes())))
			sec.raw(body.bytes())
		}
		writeSection(&w, sectionCode, sec.bytes())
	}

	return w.bytes()
}

func writeSection(w *writer, id byte, data []byte) {
	w.byte(id)
	w.u32(uint32(len(data)))
	w.raw(data)
}

func writeValTypes(w *writer, types []ValType) {
	w.u32(uint32(len(types)))
	for _, t := range types {
		w.byte(byte(t))
	}
}

// writeLocals groups consecutive locals of the same type.
func writeLocals(w *writer, locals []ValType) {
	type group struct {
		n uint32
		t ValType
	}
	var groups []group
	for _, t := range locals {
		if len(groups) > 0 && groups[len(groups)-1].t == t {
			groups[len(groups)-1].n++
			continue
		}
		groups = append(groups, group{n: 1, t: t})
	}
	w.u32(uint32(len(groups)))
	for _, g := range groups {
		w.u32(g.n)
		w.byte(byte(g.t))
	}
}
