package il

// Function is a sequence of statements under construction. The zero value
// is an empty function ready to use.
type Function struct {
	Instrs []Instr

	labels     []int // position of each label, -1 until marked
	addrLabels map[uint64]Label
	addr       uint64
}

// NewFunction returns an empty function.
func NewFunction() *Function {
	return &Function{addrLabels: make(map[uint64]Label)}
}

// SetCurrentAddress sets the address recorded on statements appended from
// now on.
func (f *Function) SetCurrentAddress(addr uint64) {
	f.addr = addr
}

func (f *Function) CurrentAddress() uint64 {
	return f.addr
}

// Append adds in to the end of f and returns its index.
func (f *Function) Append(in Instr) int {
	in.Address = f.addr
	f.Instrs = append(f.Instrs, in)
	return len(f.Instrs) - 1
}

// Len returns the number of statements in f.
func (f *Function) Len() int {
	return len(f.Instrs)
}

// Truncate discards every statement from index n onward. Labels marked past
// the new end are unmarked.
func (f *Function) Truncate(n int) {
	if n >= len(f.Instrs) {
		return
	}
	f.Instrs = f.Instrs[:n]
	for i, pos := range f.labels {
		if pos > n {
			f.labels[i] = -1
		}
	}
}

// NewLabel allocates an unmarked label.
func (f *Function) NewLabel() Label {
	f.labels = append(f.labels, -1)
	return Label(len(f.labels) - 1)
}

// MarkLabel places l before the next statement appended.
func (f *Function) MarkLabel(l Label) {
	f.labels[l] = len(f.Instrs)
}

// LabelPosition returns the index of the statement l points to.
func (f *Function) LabelPosition(l Label) (int, bool) {
	if int(l) < 0 || int(l) >= len(f.labels) || f.labels[l] < 0 {
		return 0, false
	}
	return f.labels[l], true
}

// AddressLabel returns the label associated with addr, creating it if
// needed. Callers lifting a region of code create one for every instruction
// address before lifting so that branches between them resolve.
func (f *Function) AddressLabel(addr uint64) Label {
	if l, ok := f.addrLabels[addr]; ok {
		return l
	}
	if f.addrLabels == nil {
		f.addrLabels = make(map[uint64]Label)
	}
	l := f.NewLabel()
	f.addrLabels[addr] = l
	return l
}

// LabelForAddress returns the label associated with addr, if any.
func (f *Function) LabelForAddress(addr uint64) (Label, bool) {
	l, ok := f.addrLabels[addr]
	return l, ok
}
