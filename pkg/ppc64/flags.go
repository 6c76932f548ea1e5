package ppc64

// Flag identifies a single condition bit. The condition register is eight
// four bit fields, field n occupying flags 4n to 4n+3. Identifiers 32 to 63
// are unused, the fixed-point exception bits of XER follow at 64.
type Flag uint32

// Bits within a condition register field.
const (
	CRLT = 0
	CRGT = 1
	CREQ = 2
	CRSO = 3
)

const (
	FlagCR0LT Flag = iota
	FlagCR0GT
	FlagCR0EQ
	FlagCR0SO
)

const (
	FlagXERSO Flag = 64
	FlagXEROV Flag = 65
	FlagXERCA Flag = 66

	// FlagCount is the size of the flag identifier space.
	FlagCount = 67
)

// CRFlag returns the flag for bit of condition register field.
func CRFlag(field, bit uint64) Flag {
	return Flag(field*4 + bit)
}

// IsCR reports whether f is a condition register bit.
func (f Flag) IsCR() bool {
	return f < 32
}

// Sticky reports whether f is a summary overflow bit. Writes to a sticky flag
// are OR-combined with its previous value.
func (f Flag) Sticky() bool {
	return f == FlagXERSO || (f.IsCR() && f%4 == CRSO)
}

// FlagWrite is a request, attached to an IR operation, that the host
// computes a group of flags from the operation's result.
type FlagWrite uint32

const (
	FlagWriteCR0 FlagWrite = 1 << iota
	FlagWriteCA

	// FlagWriteLimit is one past the largest valid FlagWrite combination.
	FlagWriteLimit
)
