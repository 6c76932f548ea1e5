package ppc64

// Intrinsic identifies a supervisor, cache or TLB management operation whose
// effect is not modelled in IR.
type Intrinsic uint32

const (
	IntrinsicDcbt Intrinsic = iota
	IntrinsicDcbtst
	IntrinsicIcbi
	IntrinsicIsync
	IntrinsicMfspr
	IntrinsicMtspr
	IntrinsicSlbie
	IntrinsicSlbmte
	IntrinsicTlbiel
	IntrinsicTlbie
	IntrinsicTlbia
	IntrinsicTlbsync
	IntrinsicSync
	IntrinsicEieio

	// IntrinsicCount is the number of intrinsics.
	IntrinsicCount
)
