// The hart package is the hardware abstraction layer of the loader.
//
// It names the control and status registers the loader touches and defines
// the narrow interface through which a single hardware thread is driven:
// reading and writing CSRs, running a sequence with a temporary trap vector
// installed, and the two non-returning control transfers used to leave the
// loader. Backends live in the subpackages: metal for real hardware and sim
// for the host.
package hart
