package materials

// Converter maps (id, data) pairs of one table onto another by block name.
// Pairs with no counterpart become the destination placeholder.
type Converter struct {
	src, dst *Table
	ids      [256]uint8
	mapped   [256]bool
}

// NewConverter returns nil when no conversion is needed.
func NewConverter(src, dst *Table) *Converter {
	if src == nil || dst == nil || src == dst || src.name == dst.name {
		return nil
	}
	c := &Converter{src: src, dst: dst}
	for i := 0; i < 256; i++ {
		if !src.defined[i] {
			continue
		}
		if id, ok := dst.byName[src.names[i]]; ok {
			c.ids[i] = id
			c.mapped[i] = true
		}
	}
	return c
}

// ConvertBlock converts one pair; ok is false when the placeholder was used.
func (c *Converter) ConvertBlock(id, data uint8) (uint8, uint8, bool) {
	if c == nil {
		return id, data, true
	}
	if !c.mapped[id] {
		return c.dst.placeholder, 0, false
	}
	return c.ids[id], data, true
}

// Convert rewrites blocks and data in place and returns how many cells
// fell back to the placeholder.
func (c *Converter) Convert(blocks, data []uint8) int {
	if c == nil {
		return 0
	}
	var fallbacks int
	for i, id := range blocks {
		var ok bool
		blocks[i], data[i], ok = c.ConvertBlock(id, data[i])
		if !ok {
			fallbacks++
		}
	}
	return fallbacks
}
