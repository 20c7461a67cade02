//go:build !bootmachine

package machine

const bootMachine = false
