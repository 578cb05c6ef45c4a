// Package guest holds the per-instance execution context of an Emscripten
// guest and the primitives that move data across its memory boundary.
//
// Every guest pointer is a 32-bit offset into linear memory. Accessor is the
// only place those offsets become host slices, and it checks bounds on every
// access. Violations are not returned as errors: they panic with a fatal
// *errors.Error, which wazero turns into the error of the guest call that
// triggered them. Host functions therefore never continue with a half-valid
// view of guest memory.
//
// # Allocation
//
// Copies that create new guest objects go through the guest's own malloc
// export (Context.Heap). Scratch space that lives for one guest call frame
// goes through stackAlloc (Context.Stack). This package never frees guest
// memory.
//
// # Context propagation
//
// wazero hands host functions the context.Context of the guest call. The
// runtime attaches the instance's Context with WithContext and shims recover
// it with FromContext.
package guest
