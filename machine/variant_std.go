//go:build !cheri

package machine

var defaultMode Mode = Standard{}
