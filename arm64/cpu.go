// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm64

package arm64

// defined in cpu_arm64.s
func read_mpidr() uint64
func read_currentel() uint64
func read_hcr() uint64
func write_hcr(val uint64)
func write_cnthctl(val uint64)
func write_cntvoff(val uint64)
func write_cpacr(val uint64)
func exception_return(spsr uint64, elr uint64, sp uint64)
func jump(entry uint64, sp uint64)
func wfe()

// CPU represents the running ARMv8-A core.
//
// All methods are safe to call before the Go runtime is initialized, as long
// as a stack is present. They must be declared on the pointer receiver: a
// *CPU interface value calling a value receiver method goes through a
// compiler generated wrapper which is not nosplit and dereferences g.
type CPU struct{}

// ID returns the core number within the cluster.
//
//go:nosplit
func (*CPU) ID() int {
	return CoreID(read_mpidr())
}

// EL returns the current exception level.
//
//go:nosplit
func (*CPU) EL() int {
	return Level(read_currentel())
}

// SetTimerControl writes CNTHCTL_EL2.
//
//go:nosplit
func (*CPU) SetTimerControl(val uint64) {
	write_cnthctl(val)
}

// SetVirtualOffset writes CNTVOFF_EL2.
//
//go:nosplit
func (*CPU) SetVirtualOffset(val uint64) {
	write_cntvoff(val)
}

// HypervisorConfig reads HCR_EL2.
//
//go:nosplit
func (*CPU) HypervisorConfig() uint64 {
	return read_hcr()
}

// SetHypervisorConfig writes HCR_EL2.
//
//go:nosplit
func (*CPU) SetHypervisorConfig(val uint64) {
	write_hcr(val)
}

// SetFPAccess writes CPACR_EL1.
//
//go:nosplit
func (*CPU) SetFPAccess(val uint64) {
	write_cpacr(val)
}

// ExceptionReturn sets SPSR_EL2, ELR_EL2 and SP_EL1 and executes ERET, it
// does not return.
//
//go:nosplit
func (*CPU) ExceptionReturn(spsr uint64, elr uint64, sp uint64) {
	exception_return(spsr, elr, sp)
}

// Jump sets the stack pointer and branches to the entry address at the
// current exception level, it does not return.
//
//go:nosplit
func (*CPU) Jump(entry uint64, sp uint64) {
	jump(entry, sp)
}

// WaitForEvent enters low-power state until an event is signaled.
//
//go:nosplit
func (*CPU) WaitForEvent() {
	wfe()
}
