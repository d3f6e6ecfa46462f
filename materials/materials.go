package materials

import (
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var dataFS embed.FS

// Opaque is the light absorption of a full solid block.
const Opaque = 15

var ErrNoSuchBlock = errors.New("no such block")

// Table is a palette of up to 256 block ids with their light classes and
// associated tile entity types. Tables are read-only once loaded.
type Table struct {
	name        string
	names       [256]string
	defined     [256]bool
	absorption  [256]uint8
	emission    [256]uint8
	tileEntity  [256]string
	byName      map[string]uint8
	placeholder uint8
	templates   map[string]map[string]any
}

type blockDef struct {
	ID         int    `yaml:"id"`
	Name       string `yaml:"name"`
	Absorption *int   `yaml:"absorption"`
	Emission   int    `yaml:"emission"`
	TileEntity string `yaml:"tile_entity"`
}

type tableFile struct {
	Name        string                    `yaml:"name"`
	Inherit     string                    `yaml:"inherit"`
	Placeholder string                    `yaml:"placeholder"`
	Remove      []int                     `yaml:"remove"`
	Blocks      []blockDef                `yaml:"blocks"`
	Templates   map[string]map[string]any `yaml:"tile_entity_templates"`
}

var (
	builtinMu sync.Mutex
	builtin   = map[string]*Table{}
)

// Builtin returns one of the embedded tables ("java" or "pocket").
func Builtin(name string) (*Table, error) {
	builtinMu.Lock()
	defer builtinMu.Unlock()
	if t, ok := builtin[name]; ok {
		return t, nil
	}
	t, err := loadBuiltin(name, 0)
	if err != nil {
		return nil, fmt.Errorf("Builtin: %w", err)
	}
	builtin[name] = t
	return t, nil
}

// Java is the embedded pre-flattening Java Edition palette.
func Java() *Table {
	t, err := Builtin("java")
	if err != nil {
		panic(err)
	}
	return t
}

// Pocket is the embedded legacy Pocket Edition palette.
func Pocket() *Table {
	t, err := Builtin("pocket")
	if err != nil {
		panic(err)
	}
	return t
}

func loadBuiltin(name string, depth int) (*Table, error) {
	if depth > 4 {
		return nil, fmt.Errorf("loadBuiltin: inherit chain too deep at %q", name)
	}
	raw, err := dataFS.ReadFile("data/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("loadBuiltin: %w", err)
	}
	var f tableFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%v.yaml: %w", name, err)
	}
	var base *Table
	if f.Inherit != "" {
		base, err = loadBuiltin(f.Inherit, depth+1)
		if err != nil {
			return nil, err
		}
	}
	return build(f, base)
}

// Parse reads a table from YAML. Tables loaded this way cannot inherit.
func Parse(raw []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("Parse: %w", err)
	}
	if f.Inherit != "" {
		base, err := Builtin(f.Inherit)
		if err != nil {
			return nil, fmt.Errorf("Parse: %w", err)
		}
		return build(f, base)
	}
	return build(f, nil)
}

func build(f tableFile, base *Table) (*Table, error) {
	t := &Table{
		name:      f.Name,
		byName:    map[string]uint8{},
		templates: map[string]map[string]any{},
	}
	for i := range t.absorption {
		t.absorption[i] = Opaque
	}
	if base != nil {
		t.names = base.names
		t.defined = base.defined
		t.absorption = base.absorption
		t.emission = base.emission
		t.tileEntity = base.tileEntity
		t.placeholder = base.placeholder
		for k, v := range base.templates {
			t.templates[k] = v
		}
	}
	for _, id := range f.Remove {
		if id < 0 || id > 255 {
			return nil, fmt.Errorf("build %v: remove id %d out of range", f.Name, id)
		}
		t.defined[id] = false
		t.names[id] = ""
		t.absorption[id] = Opaque
		t.emission[id] = 0
		t.tileEntity[id] = ""
	}
	for _, b := range f.Blocks {
		if b.ID < 0 || b.ID > 255 {
			return nil, fmt.Errorf("build %v: block %q id %d out of range", f.Name, b.Name, b.ID)
		}
		if b.Name == "" {
			return nil, fmt.Errorf("build %v: block %d has no name", f.Name, b.ID)
		}
		t.defined[b.ID] = true
		t.names[b.ID] = b.Name
		t.absorption[b.ID] = Opaque
		if b.Absorption != nil {
			t.absorption[b.ID] = uint8(min(max(*b.Absorption, 0), Opaque))
		}
		t.emission[b.ID] = uint8(min(max(b.Emission, 0), 15))
		t.tileEntity[b.ID] = b.TileEntity
	}
	for i := range t.names {
		if t.defined[i] {
			t.byName[t.names[i]] = uint8(i)
		}
	}
	for k, v := range f.Templates {
		t.templates[k] = normalizeTemplate(v)
	}
	if f.Placeholder != "" {
		id, ok := t.byName[f.Placeholder]
		if !ok {
			return nil, fmt.Errorf("build %v: placeholder %q: %w", f.Name, f.Placeholder, ErrNoSuchBlock)
		}
		t.placeholder = id
	}
	return t, nil
}

// yaml decodes integers as int; NBT writers want sized types.
func normalizeTemplate(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch v := v.(type) {
		case int:
			out[k] = int32(v)
		case float64:
			out[k] = float32(v)
		case map[string]any:
			out[k] = normalizeTemplate(v)
		default:
			out[k] = v
		}
	}
	return out
}

func (t *Table) Name() string { return t.name }

func (t *Table) Defined(id uint8) bool { return t.defined[id] }

func (t *Table) BlockName(id uint8) string { return t.names[id] }

func (t *Table) LightAbsorption(id uint8) uint8 { return t.absorption[id] }

func (t *Table) LightEmission(id uint8) uint8 { return t.emission[id] }

// TileEntityID is the tile entity type a block carries, or "".
func (t *Table) TileEntityID(id uint8) string { return t.tileEntity[id] }

// Placeholder is the block substituted for ids that cannot be converted
// into this table.
func (t *Table) Placeholder() uint8 { return t.placeholder }

// ID resolves a block name. Names without a namespace get "minecraft:".
func (t *Table) ID(name string) (uint8, bool) {
	if !strings.Contains(name, ":") {
		name = "minecraft:" + name
	}
	id, ok := t.byName[name]
	return id, ok
}

// TileEntityTemplate returns a fresh copy of the default payload for a
// tile entity type. Unknown types get an empty compound.
func (t *Table) TileEntityTemplate(teID string) map[string]any {
	out := map[string]any{}
	for k, v := range t.templates[teID] {
		out[k] = v
	}
	return out
}

// SameLight reports whether two blocks share both light classes.
func (t *Table) SameLight(a, b uint8) bool {
	return t.absorption[a] == t.absorption[b] && t.emission[a] == t.emission[b]
}

// Block is an id/data pair. AnyData matches every data value when the
// block is used as a replace filter.
type Block struct {
	ID      uint8
	Data    uint8
	AnyData bool
}

func (b Block) String() string {
	if b.AnyData {
		return strconv.Itoa(int(b.ID))
	}
	return fmt.Sprintf("%d:%d", b.ID, b.Data)
}

// ParseBlock accepts "1", "1:3", "stone", "minecraft:stone:3". Without an
// explicit data value the block matches any data.
func (t *Table) ParseBlock(s string) (Block, error) {
	s = strings.TrimSpace(s)
	name, data := s, ""
	if i := strings.LastIndex(s, ":"); i >= 0 {
		if _, err := strconv.Atoi(s[i+1:]); err == nil {
			name, data = s[:i], s[i+1:]
		}
	}
	var b Block
	if n, err := strconv.Atoi(name); err == nil {
		if n < 0 || n > 255 {
			return b, fmt.Errorf("ParseBlock %q: %w", s, ErrNoSuchBlock)
		}
		b.ID = uint8(n)
	} else {
		id, ok := t.ID(name)
		if !ok {
			return b, fmt.Errorf("ParseBlock %q: %w", s, ErrNoSuchBlock)
		}
		b.ID = id
	}
	if data == "" {
		b.AnyData = true
		return b, nil
	}
	d, _ := strconv.Atoi(data)
	if d < 0 || d > 15 {
		return b, fmt.Errorf("ParseBlock %q: data out of range", s)
	}
	b.Data = uint8(d)
	return b, nil
}
