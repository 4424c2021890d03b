package engine

// layout returns the per-slot alphabets for candidates of one length.
type layout[S comparable] func(length int) [][]S

// odometer is a mixed-radix counter whose digits index per-slot alphabets. The
// last slot turns fastest. When every slot wraps the counter moves on to the
// next generatable length.
type odometer[S comparable] struct {
	table     *lengthTable
	slots     layout[S]
	subsystem string
	seekCode  FaultCode
	loopCode  FaultCode

	length int
	radix  [][]S
	digits []int
	buf    []S
}

func (o *odometer[S]) seek(pos int64) error {
	l, off, err := o.table.locate(pos)
	if err != nil {
		return &FaultError{Subsystem: o.subsystem, Code: o.seekCode, Message: "seek outside the table", Err: err}
	}
	o.reset(l)
	decodeMixed(pos-off-1, o.radix, o.digits)
	for i, d := range o.digits {
		o.buf[i] = o.radix[i][d]
	}
	return nil
}

func (o *odometer[S]) reset(l int) {
	o.length = l
	o.radix = o.slots(l)
	o.digits = make([]int, l)
	o.buf = make([]S, l)
	for i := range o.buf {
		o.buf[i] = o.radix[i][0]
	}
}

func (o *odometer[S]) next() (bool, error) {
	for i := o.length - 1; i >= 0; i-- {
		if o.digits[i]+1 < len(o.radix[i]) {
			o.digits[i]++
			o.buf[i] = o.radix[i][o.digits[i]]
			for j := i + 1; j < o.length; j++ {
				o.digits[j] = 0
				o.buf[j] = o.radix[j][0]
			}
			return true, nil
		}
	}
	l, ok := o.table.next(o.length)
	if !ok {
		return false, nil
	}
	o.reset(l)
	return true, nil
}

func (o *odometer[S]) candidate() []S {
	return o.buf
}

func (o *odometer[S]) fault() *FaultError {
	return &FaultError{Subsystem: o.subsystem, Code: o.loopCode, Message: "generation loop ran past the last candidate"}
}

// decodeMixed writes r in the mixed radix given by the slot alphabet sizes
// into digits, most significant digit first.
func decodeMixed[S comparable](r int64, radix [][]S, digits []int) {
	for i := len(radix) - 1; i >= 0; i-- {
		base := int64(len(radix[i]))
		digits[i] = int(r % base)
		r /= base
	}
}

// encodeMixed is the inverse of decodeMixed.
func encodeMixed[S comparable](digits []int, radix [][]S) int64 {
	var r int64
	for i, d := range digits {
		r = r*int64(len(radix[i])) + int64(d)
	}
	return r
}
