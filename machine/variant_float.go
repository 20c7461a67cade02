//go:build !softfloat

package machine

const abiFLen = 64
