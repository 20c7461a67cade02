//go:build softfloat

package machine

const abiFLen = 0
