package effect

// UniformAlignment is the alignment of every parameter region in the
// uniform block. It matches the minimum uniform buffer offset alignment
// WebGPU guarantees.
const UniformAlignment = 256

// arrayStrideAlignment is the WGSL uniform array stride rule.
const arrayStrideAlignment = 16

func alignUp(v, a uint32) uint32 {
	return (v + a - 1) &^ (a - 1)
}

// layoutUniforms assigns each value parameter its own aligned region and
// returns the total block size.
func layoutUniforms(params []Param) uint32 {
	var offset uint32
	for i := range params {
		p := &params[i]
		if !p.IsValue() {
			continue
		}
		elem := p.Type.DataSize()
		p.Offset = alignUp(offset, UniformAlignment)
		if p.NumElements > 0 {
			p.Stride = alignUp(elem, arrayStrideAlignment)
			p.Size = p.Stride * p.NumElements
		} else {
			p.Stride = elem
			p.Size = elem
		}
		offset = p.Offset + p.Size
	}
	if offset == 0 {
		return 0
	}
	return alignUp(offset, UniformAlignment)
}

// Pack copies client data, laid out as tightly packed elements, into the
// uniform region dst of p. It reports false when src has the wrong size.
func (p *Param) Pack(dst, src []byte) bool {
	if uint32(len(src)) != p.Desc().DataSize() || uint32(len(dst)) < p.Size {
		return false
	}
	if p.NumElements == 0 || p.Stride == p.Type.DataSize() {
		copy(dst, src)
		return true
	}
	elem := p.Type.DataSize()
	for i := range p.NumElements {
		copy(dst[i*p.Stride:i*p.Stride+elem], src[i*elem:(i+1)*elem])
	}
	return true
}

// Unpack is the inverse of Pack.
func (p *Param) Unpack(dst, src []byte) bool {
	if uint32(len(dst)) != p.Desc().DataSize() || uint32(len(src)) < p.Size {
		return false
	}
	if p.NumElements == 0 || p.Stride == p.Type.DataSize() {
		copy(dst, src[:len(dst)])
		return true
	}
	elem := p.Type.DataSize()
	for i := range p.NumElements {
		copy(dst[i*elem:(i+1)*elem], src[i*p.Stride:i*p.Stride+elem])
	}
	return true
}
