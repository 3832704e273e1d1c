// Package buildoptions holds the defaults which differ between builds.
package buildoptions

// CallStackHeightLimit is the default maximum depth of nested calls before the engine traps with
// "call stack exhausted".
const CallStackHeightLimit = 2000

// BlockNestingLimit is the maximum count of blocks, loops and ifs active at once during one call from the host,
// summed over all its nested calls. Exceeding it traps like a call stack overflow. The interpreter recurses on the Go
// stack for each block as well as for each call, so with CallStackHeightLimit this bounds its growth.
const BlockNestingLimit = 1 << 16

// MemoryMaxPages is the default upper bound of a linear memory in 64KiB pages, when neither the module nor the
// runtime configuration sets a lower one.
const MemoryMaxPages = 65536
