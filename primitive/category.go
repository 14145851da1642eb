package primitive

// CategoryEnum is a bit set of conversion families. Codecs and object field
// assignment pass the families they accept to Convert.
type CategoryEnum int

// ConversionPair is a source and destination kind.
type ConversionPair struct {
	From, To KindEnum
}

const (
	CategorySafeNumber   CategoryEnum = 1 << iota // number to a number type holding every source value
	CategoryUnsafeNumber                          // number to a narrower number type
	CategoryTextNumber                            // number <-> decimal text, e.g. a TEXT column holding "42"
	CategoryNumericBool                           // integer 0/1 <-> bool, e.g. sqlite booleans
	CategoryTextualBool                           // true/false, yes/no, on/off, t/f text <-> bool
	CategoryDatetime                              // RFC3339Nano text <-> time.Time
	CategoryTimestamp                             // Unix seconds <-> time.Time
	CategoryDuration                              // duration text like 2h45m <-> time.Duration
	CategoryNanoseconds                           // integer nanoseconds <-> time.Duration
	CategorySeconds                               // floating point seconds <-> time.Duration

	CategoryAll  = (1 << iota) - 1
	CategoryNone = 0
)

var conversionPairs = map[CategoryEnum]map[ConversionPair]struct{}{
	CategorySafeNumber:   numberPairs(isSafeNumber),
	CategoryUnsafeNumber: numberPairs(func(from, to KindEnum) bool { return !isSafeNumber(from, to) }),
	CategoryTextNumber:   symmetric(KindEnum.IsNumber, KindString),
	CategoryNumericBool:  symmetric(KindEnum.IsInteger, KindBool),
	CategoryTextualBool:  symmetric(is(KindString), KindBool),
	CategoryDatetime:     symmetric(is(KindString), KindTime),
	CategoryTimestamp:    symmetric(KindEnum.IsInteger, KindTime),
	CategoryDuration:     symmetric(is(KindString), KindDuration),
	CategoryNanoseconds:  symmetric(fitsInt64, KindDuration),
	CategorySeconds:      symmetric(KindEnum.IsFloat, KindDuration),
}

func fitsInt64(k KindEnum) bool { return k.IsInteger() && k != KindUint64 }

func is(kind KindEnum) func(KindEnum) bool {
	return func(k KindEnum) bool { return k == kind }
}

func kinds(match func(KindEnum) bool) []KindEnum {
	var out []KindEnum

	for k := KindEnum(1); int(k) < KindTotal; k++ {
		if match(k) {
			out = append(out, k)
		}
	}

	return out
}

// symmetric pairs every kind matched by side with other, both ways.
func symmetric(side func(KindEnum) bool, other KindEnum) map[ConversionPair]struct{} {
	out := map[ConversionPair]struct{}{}
	for _, k := range kinds(side) {
		out[ConversionPair{k, other}] = struct{}{}
		out[ConversionPair{other, k}] = struct{}{}
	}

	return out
}

func numberPairs(keep func(from, to KindEnum) bool) map[ConversionPair]struct{} {
	out := map[ConversionPair]struct{}{}

	numbers := kinds(KindEnum.IsNumber)
	for _, from := range numbers {
		for _, to := range numbers {
			if keep(from, to) {
				out[ConversionPair{from, to}] = struct{}{}
			}
		}
	}

	return out
}

// mantissa is the number of integer bits a float kind represents exactly.
func mantissa(k KindEnum) int {
	if k == KindFloat32 {
		return 24
	}

	return 53
}

// width is the number of bits of an integer kind. int and uint count as 64
// bits when converted from and as 32 bits when converted to, so the rules
// hold on every platform.
func width(k KindEnum, asSource bool) int {
	if k == KindInt || k == KindUint {
		if asSource {
			return 64
		}

		return 32
	}

	return k.Bits()
}

// isSafeNumber reports whether every value of from is representable in to.
func isSafeNumber(from, to KindEnum) bool {
	switch {
	case from == to:
		return true

	case from.IsFloat():
		return from == KindFloat32 && to == KindFloat64

	case to.IsFloat():
		return width(from, true) < mantissa(to)

	case from.IsSigned():
		return to.IsSigned() && width(to, false) >= width(from, true)

	case to.IsUnsigned():
		return width(to, false) >= width(from, true)
	}

	// unsigned into signed needs a spare sign bit
	return width(to, false) > width(from, true)
}
