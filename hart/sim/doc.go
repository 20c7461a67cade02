// Package sim implements hart.Hart on the host.
//
// A simulated hart keeps its CSRs in memory and applies the WARL rules of
// the privileged architecture for the extensions it was configured with:
// registers of absent extensions raise an illegal instruction, fields that
// cannot hold a value read back differently than written. A Machine groups
// several harts around a simulated bus so the whole boot sequence, including
// the wake of sibling harts, runs as ordinary goroutines.
package sim
