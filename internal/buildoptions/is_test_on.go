//go:build treewasm_testing

package buildoptions

const IsTest = true
