package gltf

// Element type strings and their component counts.
var typeComponents = map[string]int{
	"SCALAR": 1,
	"VEC2":   2,
	"VEC3":   3,
	"VEC4":   4,
	"MAT2":   4,
	"MAT3":   9,
	"MAT4":   16,
}

// maxSyntheticBytes bounds the storage allocated for accessors that have no
// bufferView or that are sparse.
const maxSyntheticBytes = 1 << 28

func (d *decoder) resolveAccessors() error {
	d.model.Accessors = make([]Attribute, len(d.doc.Accessors))
	for i, acc := range d.doc.Accessors {
		a, err := d.resolveAccessor(i, acc)
		if err != nil {
			return err
		}
		d.model.Accessors[i] = a
	}
	return nil
}

func (d *decoder) resolveAccessor(i int, acc jsonAccessor) (Attribute, error) {
	components, ok := typeComponents[acc.Type]
	if !ok {
		return Attribute{}, d.fail(InvalidDocument, i, "accessor type %q", acc.Type)
	}
	typ, err := ComponentTypeFromCode(acc.ComponentType)
	if err != nil {
		return Attribute{}, toDecodeError(err, d.stage, i)
	}
	if acc.Count < 0 {
		return Attribute{}, d.fail(InvalidDocument, i, "negative count %d", acc.Count)
	}

	var (
		buf    []byte
		offset = acc.ByteOffset
		stride int
	)
	if acc.BufferView != nil {
		bv := *acc.BufferView
		if bv < 0 || bv >= len(d.model.BufferViews) {
			return Attribute{}, d.fail(OutOfRangeReference, i, "bufferView %d of %d", bv, len(d.model.BufferViews))
		}
		view := d.model.BufferViews[bv]
		buf, stride = view.Data, view.ByteStride
	} else {
		// No bufferView: every element is zero until sparse values say otherwise.
		elemSize := typ.Size() * components
		if acc.Count > maxSyntheticBytes/elemSize {
			return Attribute{}, d.fail(InvalidDocument, i, "count %d too large without bufferView", acc.Count)
		}
		buf, offset = make([]byte, acc.Count*elemSize), 0
	}

	a, err := Resolve(acc.ComponentType, components, buf, offset, acc.Count, stride, acc.Normalized, acc.Min, acc.Max)
	if err != nil {
		return Attribute{}, toDecodeError(err, d.stage, i)
	}
	if acc.Sparse == nil {
		return a, nil
	}
	return d.applySparse(i, a, acc)
}

// applySparse returns a packed copy of a with the sparse values substituted.
// The source buffer is left untouched.
func (d *decoder) applySparse(i int, a Attribute, acc jsonAccessor) (Attribute, error) {
	sp := acc.Sparse
	if sp.Count < 1 || sp.Count > a.Count() {
		return Attribute{}, d.fail(InvalidDocument, i, "sparse count %d for %d elements", sp.Count, a.Count())
	}
	if a.Count() > maxSyntheticBytes/a.ElementSize() {
		return Attribute{}, d.fail(InvalidDocument, i, "sparse accessor of %d elements too large", a.Count())
	}
	for _, bv := range []int{sp.Indices.BufferView, sp.Values.BufferView} {
		if bv < 0 || bv >= len(d.model.BufferViews) {
			return Attribute{}, d.fail(OutOfRangeReference, i, "sparse bufferView %d of %d", bv, len(d.model.BufferViews))
		}
	}

	indices, err := Resolve(sp.Indices.ComponentType, 1, d.model.BufferViews[sp.Indices.BufferView].Data,
		sp.Indices.ByteOffset, sp.Count, 0, false, nil, nil)
	if err != nil {
		return Attribute{}, toDecodeError(err, d.stage, i)
	}
	if !indices.ComponentType().Unsigned() {
		return Attribute{}, d.fail(InvalidDocument, i, "sparse indices of type %v", indices.ComponentType())
	}
	values, err := Resolve(acc.ComponentType, a.Components, d.model.BufferViews[sp.Values.BufferView].Data,
		sp.Values.ByteOffset, sp.Count, 0, false, nil, nil)
	if err != nil {
		return Attribute{}, toDecodeError(err, d.stage, i)
	}

	dense := a.packed()
	size := a.ElementSize()
	src := values.Bytes()
	prev := -1
	for k := 0; k < sp.Count; k++ {
		idx := int(indices.Uint(k, 0))
		if idx <= prev {
			return Attribute{}, d.fail(InvalidDocument, i, "sparse indices not strictly increasing at %d", k)
		}
		if idx >= a.Count() {
			return Attribute{}, d.fail(OutOfRangeReference, i, "sparse index %d of %d elements", idx, a.Count())
		}
		copy(dense[idx*size:(idx+1)*size], src[k*size:(k+1)*size])
		prev = idx
	}

	out, err := Resolve(acc.ComponentType, a.Components, dense, 0, a.Count(), 0, a.Normalized, a.Min, a.Max)
	if err != nil {
		return Attribute{}, toDecodeError(err, d.stage, i)
	}
	return out, nil
}
