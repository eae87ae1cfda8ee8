package lai

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrArenaExhausted is returned when a reservation does not fit.
var ErrArenaExhausted = errors.New("arena exhausted")

type Allocation struct {
	Offset uint64
	Size   uint64
}

func (a *Allocation) String() string {
	return fmt.Sprintf("[%d %d]", a.Offset, a.Size)
}

// End is the first offset past the allocation.
func (a *Allocation) End() uint64 {
	return a.Offset + a.Size
}

// LinearAllocator hands out aligned ranges of a block of Size bytes. It
// only keeps bookkeeping; the memory itself lives elsewhere (a GPU buffer,
// a host block). Allocations are kept sorted by offset and freed ranges can
// be reused.
type LinearAllocator struct {
	Size   uint64
	allocs []*Allocation
}

func NewLinearAllocator(size uint64) *LinearAllocator {
	return &LinearAllocator{Size: size}
}

func makeAlignUp(a uint64, align uint64) uint64 {
	if align <= 1 {
		return a
	}
	m := a % align
	if m == 0 {
		return a
	}
	return (a - m) + align
}

func (p *LinearAllocator) Free(fa *Allocation) {
	for i, a := range p.allocs {
		if a == fa {
			p.allocs = append(p.allocs[:i], p.allocs[i+1:]...)
			return
		}
	}
}

// Allocate returns the first range of size bytes aligned to align that fits,
// or nil when none does.
func (p *LinearAllocator) Allocate(size uint64, align uint64) *Allocation {
	if size == 0 || size > p.Size {
		slog.Debug("allocation does not fit", "size", size, "capacity", p.Size)
		return nil
	}

	var prevEnd uint64
	for i, c := range p.allocs {
		l := makeAlignUp(prevEnd, align)
		if c.Offset >= l && c.Offset-l >= size {
			na := &Allocation{Offset: l, Size: size}
			p.allocs = append(p.allocs[:i], append([]*Allocation{na}, p.allocs[i:]...)...)
			return na
		}
		prevEnd = c.End()
	}

	nl := makeAlignUp(prevEnd, align)
	if nl <= p.Size && p.Size-nl >= size {
		na := &Allocation{Offset: nl, Size: size}
		p.allocs = append(p.allocs, na)
		return na
	}
	slog.Debug("allocation does not fit", "size", size, "used", p.Used(), "capacity", p.Size)
	return nil
}

// Used is the number of bytes currently allocated, not counting alignment
// padding.
func (p *LinearAllocator) Used() uint64 {
	var used uint64
	for _, a := range p.allocs {
		used += a.Size
	}
	return used
}

// Reset frees every allocation.
func (p *LinearAllocator) Reset() {
	p.allocs = nil
}

func (p *LinearAllocator) String() string {
	return fmt.Sprintf("%v", p.allocs)
}

// SystemArena is the block subsystems reserve their bookkeeping from at
// startup, after asking how much they need.
type SystemArena struct {
	alloc        *LinearAllocator
	reservations map[string]*Allocation
}

func NewSystemArena(size uint64) *SystemArena {
	return &SystemArena{
		alloc:        NewLinearAllocator(size),
		reservations: make(map[string]*Allocation),
	}
}

// Reserve sets aside size bytes for name.
func (a *SystemArena) Reserve(name string, size uint64) (*Allocation, error) {
	if _, ok := a.reservations[name]; ok {
		return nil, fmt.Errorf("arena block %q already reserved", name)
	}
	r := a.alloc.Allocate(size, 8)
	if r == nil {
		return nil, fmt.Errorf("reserving %d bytes for %s: %w", size, name, ErrArenaExhausted)
	}
	a.reservations[name] = r
	slog.Debug("arena block reserved", "name", name, "offset", r.Offset, "size", r.Size)
	return r, nil
}

// Release returns the block reserved for name.
func (a *SystemArena) Release(name string) {
	if r, ok := a.reservations[name]; ok {
		a.alloc.Free(r)
		delete(a.reservations, name)
	}
}

func (a *SystemArena) Used() uint64 {
	return a.alloc.Used()
}
