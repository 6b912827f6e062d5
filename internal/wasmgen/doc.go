// Package wasmgen assembles small core WebAssembly modules from Go.
//
// It covers the subset the native context guest needs: function types,
// function imports, one memory, mutable i32 globals, exports and function
// bodies built with Code. Section sizes and LEB128 immediates are computed,
// so bodies are written as instruction sequences rather than raw bytes:
//
//	body := wasmgen.NewCode().
//		LocalGet(0).
//		LocalGet(1).
//		I32Add().
//		End()
//
//	m := &wasmgen.Module{
//		Types: []wasmgen.FuncType{{Params: []wasmgen.ValType{wasmgen.I32, wasmgen.I32}, Results: []wasmgen.ValType{wasmgen.I32}}},
//		Funcs: []wasmgen.Func{{Type: 0, Body: body}},
//		Exports: []wasmgen.Export{{Name: "add", Kind: wasmgen.KindFunc, Index: 0}},
//	}
//	bin := m.Encode()
package wasmgen
