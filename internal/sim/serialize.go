package sim

// Serialize returns the canonical form of the model. It has the shape of a
// construction description: New(m.Serialize()) builds a model whose
// properties and table fields match m.
//
// Parameters live at the top level, except those of an enabled capability,
// which live in its stanza. Time is written only when non-zero. Values of
// caller-defined parameters go under "parameters"; caller-defined outputs
// are not serialized.
func (m *Model) Serialize() Description {
	d := Description{"type": m.eng.kind()}
	m.eng.encode(m, d)
	if m.time != 0 {
		d["time"] = m.time
	}

	params := make(map[string]any, len(m.custom)+len(m.pending))
	for k, v := range m.pending {
		params[k] = v
	}
	for _, name := range m.custom {
		params[name], _ = m.props.Get(name)
	}
	if len(params) > 0 {
		d["parameters"] = params
	}
	return d
}
