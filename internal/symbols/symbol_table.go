// symbols/symbol_table.go - Scope chain used by the binder
//
// The package is split into focused files:
// - symbol_table_core.go: Symbol, kinds and resolutions
// - symbol_table_operations.go: Scope define/find and capture-aware resolution
// - symbol_table_frames.go: Frame slot allocation and capture lists
// - info.go: Info, the bound program handed to the compiler

package symbols
