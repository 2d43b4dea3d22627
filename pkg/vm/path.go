package vm

import (
	"github.com/basilfold/qbi/pkg/errs"
)

// Path is the runtime form of a variable path: a root variable plus zero or
// more array-index/property segments, built incrementally by the
// OpVarPathName/Index/Property instructions and consumed by
// OpCopyVarPathToA/OpCopyAToVarPath (spec §4.3.4).
type Path struct {
	Root     RootPath
	Segments []Segment
	// CapturedFrame is set when this Path is lifted out of the frame it was
	// built against (OpPushUnnamedByRef, binding a by-reference argument)
	// so later reads/writes still resolve against that frame even after
	// the call stack has moved on. Nil means "resolve Root dynamically
	// against whatever frame is current" (the common case for a path used
	// immediately within the statement that built it).
	CapturedFrame *Frame
}

// pushIndex appends idx to the currently-open array-index segment, starting
// a new one if the path's last segment isn't still accepting indices. BASIC
// never interleaves two array accesses without an intervening property
// segment, so "last segment is an array-index segment" unambiguously means
// "still the same ArrayElementRef".
func (p *Path) pushIndex(idx int32) {
	if n := len(p.Segments); n > 0 && !p.Segments[n-1].IsProperty {
		p.Segments[n-1].Index = append(p.Segments[n-1].Index, idx)
		return
	}
	p.Segments = append(p.Segments, Segment{Index: []int32{idx}})
}

func (p *Path) pushProperty(name string) {
	p.Segments = append(p.Segments, Segment{IsProperty: true, Property: name})
}

// frameFor returns the scope a root path resolves against: the global frame
// for SHARED/module-level names, otherwise the current call frame.
func (vm *VM) frameFor(root RootPath) *Frame {
	if root.Shared || len(vm.contextStack) == 0 {
		return vm.contextStack[0]
	}
	return vm.contextStack[len(vm.contextStack)-1]
}

// resolveLocation chases by-reference parameter aliases to the concrete
// frame and canonical name a path ultimately denotes, prepending any
// segments the alias chain itself carries (an array/UDT parameter passed
// further down a call chain by reference) ahead of p's own segments.
func (vm *VM) resolveLocation(p *Path) (*Frame, string, []Segment) {
	frame := p.CapturedFrame
	if frame == nil {
		frame = vm.frameFor(p.Root)
	}
	canon := p.Root.Name.CanonicalName()
	segs := p.Segments
	for frame.Aliases != nil {
		alias, ok := frame.Aliases[canon]
		if !ok {
			break
		}
		segs = append(append([]Segment{}, alias.Segments...), segs...)
		canon = alias.Root.Name.CanonicalName()
		next := alias.CapturedFrame
		if next == nil {
			next = vm.frameFor(alias.Root)
		}
		frame = next
	}
	return frame, canon, segs
}

// ReadPath evaluates a path to a Value.
func (vm *VM) ReadPath(p *Path) (Value, error) {
	frame, canon, segs := vm.resolveLocation(p)
	cur, ok := frame.Vars[canon]
	if !ok {
		return nil, errs.NewRuntimeError(errs.KindElementNotDefined, "variable "+p.Root.Name.String()+" is not defined")
	}
	for _, seg := range segs {
		next, err := diveOne(cur, seg)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// WritePath stores value at the location a path identifies, mutating shared
// containers (array backing slices, UDT field maps) in place so sibling
// references observe the write without any path being re-resolved.
func (vm *VM) WritePath(p *Path, value Value) error {
	frame, canon, segments := vm.resolveLocation(p)
	if len(segments) == 0 {
		frame.Vars[canon] = value
		return nil
	}
	cur, ok := frame.Vars[canon]
	if !ok {
		return errs.NewRuntimeError(errs.KindElementNotDefined, "variable "+p.Root.Name.String()+" is not defined")
	}
	for i := 0; i < len(segments)-1; i++ {
		next, err := diveOne(cur, segments[i])
		if err != nil {
			return err
		}
		cur = next
	}
	last := segments[len(segments)-1]
	if last.IsProperty {
		udt, ok := cur.(UDTValue)
		if !ok {
			return errs.NewRuntimeError(errs.KindTypeMismatch, "property access on a non-record value")
		}
		if _, ok := udt.Fields[last.Property]; !ok {
			return errs.NewRuntimeError(errs.KindElementNotDefined, "field "+last.Property+" is not defined")
		}
		udt.Fields[last.Property] = value
		return nil
	}
	arr, ok := cur.(ArrayValue)
	if !ok {
		return errs.NewRuntimeError(errs.KindTypeMismatch, "index access on a non-array value")
	}
	offset, err := arr.Offset(last.Index)
	if err != nil {
		return errs.NewRuntimeError(errs.KindSubscriptOutOfRange, err.Error())
	}
	arr.Data[offset] = value
	return nil
}

func diveOne(cur Value, seg Segment) (Value, error) {
	if seg.IsProperty {
		udt, ok := cur.(UDTValue)
		if !ok {
			return nil, errs.NewRuntimeError(errs.KindTypeMismatch, "property access on a non-record value")
		}
		v, ok := udt.Fields[seg.Property]
		if !ok {
			return nil, errs.NewRuntimeError(errs.KindElementNotDefined, "field "+seg.Property+" is not defined")
		}
		return v, nil
	}
	arr, ok := cur.(ArrayValue)
	if !ok {
		return nil, errs.NewRuntimeError(errs.KindTypeMismatch, "index access on a non-array value")
	}
	offset, err := arr.Offset(seg.Index)
	if err != nil {
		return nil, errs.NewRuntimeError(errs.KindSubscriptOutOfRange, err.Error())
	}
	return arr.Data[offset], nil
}
