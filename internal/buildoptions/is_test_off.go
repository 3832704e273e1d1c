//go:build !treewasm_testing

package buildoptions

// IsTest is true if currently running unit tests with the treewasm_testing tag. It guards "test-time" assertions
// in the engine as `if buildoptions.IsTest { ... }`, which the compiler removes from the final binary.
const IsTest = false
