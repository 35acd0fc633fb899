package renderer

// Buffers created on the same device share its binding targets. This
// records which buffer last claimed each target so that a buffer whose
// target was taken over no longer reports itself bound or active.
//
// Devices are used as map keys and must be comparable; every Device
// implementation in this module is a pointer.
type deviceBindings struct {
	uniform  *UniformBlockBuffer
	geometry *GeometryBuffer
}

var bindings = map[Device]*deviceBindings{}

func bindingsOf(device Device) *deviceBindings {
	b, ok := bindings[device]
	if !ok {
		b = &deviceBindings{}
		bindings[device] = b
	}
	return b
}

// activeUniform returns the buffer that owns the generic uniform target, or nil.
func activeUniform(device Device) *UniformBlockBuffer {
	if b, ok := bindings[device]; ok {
		return b.uniform
	}
	return nil
}

func (b *deviceBindings) claimUniform(ub *UniformBlockBuffer) {
	if b.uniform != nil && b.uniform != ub {
		b.uniform.active = false
	}
	b.uniform = ub
}

func (b *deviceBindings) claimGeometry(gb *GeometryBuffer) {
	if b.geometry != nil && b.geometry != gb {
		b.geometry.bound = false
	}
	b.geometry = gb
}

// release drops the entry for device once no buffer holds a target on it.
func release(device Device) {
	if b, ok := bindings[device]; ok && b.uniform == nil && b.geometry == nil {
		delete(bindings, device)
	}
}
