// Package wasmlib implements the native context library as a WebAssembly
// guest module executed by wazero.
//
// The guest is assembled at startup with internal/wasmgen and exposes the
// same entry points as the C library: init_context, free_context,
// context_is_lower, context_is_upper, context_to_lower, context_to_upper and
// create_subobject. The subobject callback is a host import
// (env.subobject_created) that dispatches to whatever SetCallback installed.
//
// Pointers are offsets into guest linear memory, so the library keeps the C
// library's failure modes: passing a freed or foreign pointer silently reads
// or corrupts other blocks instead of failing.
//
//	lib, err := wasmlib.New(ctx, &wasmlib.Config{Pages: 1})
//	if err != nil {
//	    return err
//	}
//	defer lib.Close(ctx)
//
//	p := lib.InitContext()
//	defer lib.FreeContext(p)
//
// Guest faults (traps) are unrecoverable native errors and panic with an
// errors.KindTrap error.
package wasmlib
