package sim

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/rvboot/bbl/hart"
	"github.com/rvboot/bbl/mmio"
)

// Standard CLINT layout.
const (
	ClintMsip     = 0x0000
	ClintMtimecmp = 0x4000
	ClintMtime    = 0xbff8
	ClintSize     = 0x10000
)

// Machine is a set of harts sharing a bus and a CLINT.
type Machine struct {
	Bus   *Bus
	Harts []*Hart
}

// NewMachine creates n harts with ids 0 to n-1 configured like cfg, and a
// CLINT at clint whose msip and mtimecmp registers are wired to them.
func NewMachine(n int, clint uintptr, cfg Config) *Machine {
	m := &Machine{Bus: new(Bus)}
	m.Bus.Add(clint, ClintSize)
	mtime := mmio.U64At(m.Bus, clint+ClintMtime)
	for id := range n {
		c := cfg
		c.ID = uintptr(id)
		c.IPI = mmio.U32At(m.Bus, clint+ClintMsip+4*uintptr(id))
		c.Timecmp = mmio.U64At(m.Bus, clint+ClintMtimecmp+8*uintptr(id))
		c.Mtime = mtime
		m.Harts = append(m.Harts, New(c))
	}
	return m
}

// Result is the outcome of one hart's boot.
type Result struct {
	Woken bool  // a secondary hart observed its wake signal
	Err   error // see Hart.Run
}

// Boot runs first on the hart with id boot and, for every other hart, waits
// for its software interrupt and then runs other. Secondary harts that are
// not woken by the time first has returned are left asleep. The results are
// indexed by hart id.
func (m *Machine) Boot(ctx context.Context, boot int, first, other func(h *Hart)) ([]Result, error) {
	results := make([]Result, len(m.Harts))
	done := make(chan struct{})
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(done)
		h := m.Harts[boot]
		results[boot].Err = h.Run(func() { first(h) })
		return nil
	})
	for id, h := range m.Harts {
		if id == boot {
			continue
		}
		g.Go(func() error {
			if !waitForWake(ctx, h, done) {
				return ctx.Err()
			}
			results[id].Woken = true
			results[id].Err = h.Run(func() { other(h) })
			return nil
		})
	}
	err := g.Wait()
	return results, err
}

// waitForWake polls mip.MSIP the way a hart parked in wfi would. It gives up
// once first has finished without waking this hart, or ctx is cancelled.
func waitForWake(ctx context.Context, h *Hart, done <-chan struct{}) bool {
	for {
		if h.Read(hart.Mip)&hart.IntMSIP != 0 {
			return true
		}
		select {
		case <-done:
			// The boot hart issued every wake before it finished.
			return h.Read(hart.Mip)&hart.IntMSIP != 0
		case <-ctx.Done():
			return false
		default:
			runtime.Gosched()
		}
	}
}
