// Package ctxbind provides a checked Go binding for an opaque native context
// library exposed through a handle-based C ABI.
//
// The native library hands out raw context pointers, transforms them in place,
// returns sub-object pointers into context memory and calls back into the host
// through a single global function pointer. None of that is memory safe on its
// own. This module layers ownership, borrow and lifetime checks on top.
//
// # Architecture Overview
//
//	ctxbind/             Root package with the Library ABI contract
//	├── binding/         Context, View and Channel: the checked API
//	├── resource/        Ledger of owned native blocks and strict borrows
//	├── errors/          Structured error types
//	├── native/wasmlib/  The library as a WebAssembly guest run by wazero
//	├── native/clib/     The library as C compiled through cgo
//	├── internal/wasmgen/ Assembler for the guest module
//	└── cmd/ctxdemo/     Demo driver with an optional TUI
//
// # Quick Start
//
//	lib, err := wasmlib.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer lib.Close(ctx)
//
//	b := binding.New(lib)
//	c := b.MustNewContext()
//	defer c.Close()
//
//	v, err := c.View(16)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(v) // "QRSTUVWXYZ"
//
// # Classification
//
// The native library is not total: after some transform sequences it reports
// neither lower nor upper. Context.Classify returns Lower, Upper or
// Unspecified and callers must handle all three.
//
// # Lifetimes
//
// A View is only valid while its Context is live and unmodified. Every access
// revalidates against the context's epoch and fails closed. With
// binding.WithStrictBorrows, mutation is refused while views are held instead.
//
// Callback payloads are valid only for the duration of one invocation; copy
// them with Payload.Text or Payload.Bytes.
//
// # Thread Safety
//
// Context and View are NOT safe for concurrent use. The callback slot and the
// ownership ledger are synchronized.
package ctxbind
