// Package mmio provides the memory mapped register types used by the loader
// and the translation of physical addresses into them.
//
// In machine mode there is no address translation, so on hardware a register
// lives at its physical address. The simulator backs the same addresses with
// ordinary memory, which is why every driver obtains its registers through a
// Mapper instead of converting addresses itself.
package mmio
