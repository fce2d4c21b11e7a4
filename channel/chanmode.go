package channel

import (
	"strings"
)

// ModeClass identifies which of the ISUPPORT CHANMODES groups a mode
// letter belongs to, which determines how many parameters it takes.
type ModeClass byte

const (
	ClassList      ModeClass = 'A' // always takes a parameter, both set and unset (ban, except, invex, quiet)
	ClassParamBoth ModeClass = 'B' // always takes a parameter, both set and unset (key)
	ClassParamSet  ModeClass = 'C' // takes a parameter only when set (limit)
	ClassFlag      ModeClass = 'D' // never takes a parameter
	ClassPrefix    ModeClass = 'P' // membership prefix mode (q/a/o/h/v), not part of CHANMODES
)

// ModeSet classifies mode letters according to a server's configured
// CHANMODES=A,B,C,D string plus its PREFIX modes, so the actor can
// tell how many parameters a change consumes without hard-coding a
// fixed mode alphabet.
type ModeSet struct {
	classes map[byte]ModeClass
	prefix  map[byte]byte // mode letter -> glyph, e.g. 'o' -> '@'
	order   []byte        // prefix modes, highest authority first
}

// NewModeSet builds a ModeSet from the CHANMODES classes and the
// PREFIX mode/glyph strings (equal length, highest authority first,
// e.g. modes "qaohv" glyphs "~&@%+").
func NewModeSet(a, b, c, d, prefixModes, prefixGlyphs string) *ModeSet {
	ms := &ModeSet{classes: make(map[byte]ModeClass), prefix: make(map[byte]byte)}
	for i := 0; i < len(a); i++ {
		ms.classes[a[i]] = ClassList
	}
	for i := 0; i < len(b); i++ {
		ms.classes[b[i]] = ClassParamBoth
	}
	for i := 0; i < len(c); i++ {
		ms.classes[c[i]] = ClassParamSet
	}
	for i := 0; i < len(d); i++ {
		ms.classes[d[i]] = ClassFlag
	}
	n := len(prefixModes)
	if len(prefixGlyphs) < n {
		n = len(prefixGlyphs)
	}
	for i := 0; i < n; i++ {
		ms.classes[prefixModes[i]] = ClassPrefix
		ms.prefix[prefixModes[i]] = prefixGlyphs[i]
		ms.order = append(ms.order, prefixModes[i])
	}
	return ms
}

// Class reports the classification of mode letter m, or false if m is
// not a recognised channel mode.
func (ms *ModeSet) Class(m byte) (ModeClass, bool) {
	c, ok := ms.classes[m]
	return c, ok
}

// IsPrefix reports whether m is a membership prefix mode.
func (ms *ModeSet) IsPrefix(m byte) bool {
	c, ok := ms.classes[m]
	return ok && c == ClassPrefix
}

// Glyph returns the PREFIX glyph for prefix mode m, or 0.
func (ms *ModeSet) Glyph(m byte) byte { return ms.prefix[m] }

// Rank returns m's authority rank among prefix modes: 0 is highest
// (e.g. founder), increasing toward voice. ok is false if m isn't a
// prefix mode.
func (ms *ModeSet) Rank(m byte) (rank int, ok bool) {
	for i, pm := range ms.order {
		if pm == m {
			return i, true
		}
	}
	return 0, false
}

// TakesParam reports whether mode m consumes a parameter when applied
// with the given sign ('+' or '-').
func (ms *ModeSet) TakesParam(m byte, sign byte) bool {
	switch ms.classes[m] {
	case ClassList, ClassParamBoth, ClassPrefix:
		return true
	case ClassParamSet:
		return sign == '+'
	default:
		return false
	}
}

// Change is one mode letter transition: sign is '+' or '-', Arg is
// the parameter if the mode class requires one for this sign.
type Change struct {
	Sign byte
	Mode byte
	Arg  string
}

// Builder accumulates Changes and renders them as a single collapsed
// MODE parameter string: consecutive changes sharing a sign are
// folded under one leading sign token, matching the "collapsed sign
// output" IRC convention (+oo-v nick1 nick2 nick3 rather than
// +o+o-v nick1 nick2 nick3), ported from the fluent
// ChannelModeBuilder in original_source/src/state/mode_builder.rs.
type Builder struct {
	changes []Change
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// Add appends one change.
func (b *Builder) Add(sign byte, mode byte, arg string) *Builder {
	b.changes = append(b.changes, Change{Sign: sign, Mode: mode, Arg: arg})
	return b
}

// Len reports how many changes have been added.
func (b *Builder) Len() int { return len(b.changes) }

// Changes returns the accumulated changes in order.
func (b *Builder) Changes() []Change { return append([]Change(nil), b.changes...) }

// Render collapses the accumulated changes into MODE command
// parameters: params[0] is the sign/letter string, the rest are the
// arguments for modes that took one, in order.
func Render(changes []Change) []string {
	if len(changes) == 0 {
		return nil
	}
	var letters strings.Builder
	var args []string
	var sign byte
	for _, c := range changes {
		if c.Sign != sign {
			letters.WriteByte(c.Sign)
			sign = c.Sign
		}
		letters.WriteByte(c.Mode)
		if c.Arg != "" {
			args = append(args, c.Arg)
		}
	}
	return append([]string{letters.String()}, args...)
}
