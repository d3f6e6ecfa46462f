package nbtutil

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/stretchr/objx"

	"github.com/xmdhs/regioncopy/box"
)

var (
	selectorCoord = regexp.MustCompile(`\b([xyz])=(-?\d+(?:\.\d+)?)`)
	absNumber     = regexp.MustCompile(`^-?\d+(?:\.\d+)?$`)
)

// RelocateCommand shifts absolute coordinates embedded in command text:
// selector arguments x=/y=/z= and every run of three plain numbers.
// Relative (~) and local (^) coordinates are left alone.
func RelocateCommand(cmd string, d box.Vec) string {
	if cmd == "" {
		return cmd
	}
	cmd = selectorCoord.ReplaceAllStringFunc(cmd, func(s string) string {
		m := selectorCoord.FindStringSubmatch(s)
		return m[1] + "=" + shiftNumber(m[2], axis(d, m[1]))
	})

	tokens := strings.Split(cmd, " ")
	for i := 0; i+2 < len(tokens); {
		if absNumber.MatchString(tokens[i]) && absNumber.MatchString(tokens[i+1]) && absNumber.MatchString(tokens[i+2]) {
			tokens[i] = shiftNumber(tokens[i], d.X)
			tokens[i+1] = shiftNumber(tokens[i+1], d.Y)
			tokens[i+2] = shiftNumber(tokens[i+2], d.Z)
			i += 3
			continue
		}
		i++
	}
	return strings.Join(tokens, " ")
}

func axis(d box.Vec, name string) int {
	switch name {
	case "x":
		return d.X
	case "y":
		return d.Y
	}
	return d.Z
}

func shiftNumber(s string, by int) string {
	if n, err := strconv.Atoi(s); err == nil {
		return strconv.Itoa(n + by)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return strconv.FormatFloat(f+float64(by), 'f', -1, 64)
}

// RelocateCommandBlock rewrites the Command field of a command block
// tile entity. It reports whether anything changed.
func RelocateCommandBlock(te Compound, d box.Vec) bool {
	m := objx.Map(te)
	v := m.Get("Command")
	if !v.IsStr() {
		return false
	}
	old := v.Str()
	nw := RelocateCommand(old, d)
	if nw == old {
		return false
	}
	m.Set("Command", nw)
	return true
}

// RelocateSpawner shifts the positions of the entities a mob spawner
// will produce, both in SpawnData and in every SpawnPotentials entry.
func RelocateSpawner(te Compound, d box.Vec) int {
	m := objx.Map(te)
	var n int
	if sd := m.Get("SpawnData"); sd.IsMSI() {
		if OffsetEntity(sd.MSI(), d) {
			n++
		}
	}
	pots := m.Get("SpawnPotentials")
	if !pots.IsInterSlice() {
		return n
	}
	for _, p := range pots.InterSlice() {
		pm, ok := p.(map[string]any)
		if !ok {
			continue
		}
		for _, key := range []string{"Entity", "Properties"} {
			if e := objx.Map(pm).Get(key); e.IsMSI() && OffsetEntity(e.MSI(), d) {
				n++
			}
		}
	}
	return n
}

// IsCommandBlock reports whether a tile entity id names a command block.
func IsCommandBlock(id string) bool {
	switch id {
	case "Control", "minecraft:command_block", "CommandBlock":
		return true
	}
	return false
}

// IsMobSpawner reports whether a tile entity id names a mob spawner.
func IsMobSpawner(id string) bool {
	switch id {
	case "MobSpawner", "minecraft:mob_spawner":
		return true
	}
	return false
}
