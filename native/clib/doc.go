// Package clib implements the native context library in C, compiled through
// cgo. It requires a cgo-enabled build; without cgo the package is empty.
//
// The library keeps a single process-wide callback pointer, so every Library
// value shares one callback slot. Pointers handed out are C heap addresses and
// carry the C library's usual hazards: freeing twice or reading after free is
// undefined behaviour.
package clib
