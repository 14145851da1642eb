package primitive

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var ErrNotConvertible = errors.New("value is not convertible")

var bytesType = reflect.TypeFor[[]byte]()

// IsAllowed reports whether a conversion pair belongs to any allowed category.
// Conversions between values of the same kind are always allowed.
func IsAllowed(pair ConversionPair, allowed CategoryEnum) bool {
	if pair.From == pair.To && pair.From != 0 {
		return true
	}

	for category := CategoryEnum(1); category&CategoryAll > 0; category <<= 1 {
		if allowed&category == 0 {
			continue
		}

		if _, ok := conversionPairs[category][pair]; ok {
			return true
		}
	}

	return false
}

// Convert converts value to the dst type. It is the runtime counterpart of the
// conversion categories: direct assignment first, then pointer wrapping and
// unwrapping, primitive conversions restricted to allowed categories, element
// wise slice and map conversion, and finally plain reflect conversion between
// values of the same kind. A nil value converts to the zero value of dst.
func Convert(value any, dst reflect.Type, allowed CategoryEnum) (reflect.Value, error) {
	return convertValue(reflect.ValueOf(value), dst, allowed)
}

func convertValue(v reflect.Value, dst reflect.Type, allowed CategoryEnum) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Zero(dst), nil
	}

	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Zero(dst), nil
		}

		return convertValue(v.Elem(), dst, allowed)
	}

	if v.Kind() == reflect.Ptr && v.IsNil() {
		return reflect.Zero(dst), nil
	}

	if v.Type().AssignableTo(dst) {
		return v, nil
	}

	if v.Kind() == reflect.Ptr && dst.Kind() != reflect.Ptr {
		return convertValue(v.Elem(), dst, allowed)
	}

	if dst.Kind() == reflect.Ptr {
		elem, err := convertValue(v, dst.Elem(), allowed)
		if err != nil {
			return reflect.Value{}, err
		}

		ptr := reflect.New(dst.Elem())
		ptr.Elem().Set(elem)

		return ptr, nil
	}

	if dst.Kind() == reflect.Interface {
		if v.Type().Implements(dst) {
			out := reflect.New(dst).Elem()
			out.Set(v)

			return out, nil
		}

		return reflect.Value{}, notConvertible(v.Type(), dst)
	}

	if v.Type() == bytesType && dst.Kind() != reflect.Slice {
		v = reflect.ValueOf(string(v.Bytes()))
	}

	srcKind, dstKind := Classify(v.Type()), Classify(dst)
	if srcKind != 0 && dstKind != 0 {
		if !IsAllowed(ConversionPair{From: srcKind, To: dstKind}, allowed) {
			return reflect.Value{}, fmt.Errorf("%w: %s to %s is not an allowed conversion", ErrNotConvertible, srcKind, dstKind)
		}

		return convertPrimitive(v, srcKind, dst, dstKind)
	}

	switch {
	case dst.Kind() == reflect.Slice && (v.Kind() == reflect.Slice || v.Kind() == reflect.Array):
		out := reflect.MakeSlice(dst, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			elem, err := convertValue(v.Index(i), dst.Elem(), allowed)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}

			out.Index(i).Set(elem)
		}

		return out, nil

	case dst.Kind() == reflect.Array && (v.Kind() == reflect.Slice || v.Kind() == reflect.Array):
		if v.Len() > dst.Len() {
			return reflect.Value{}, fmt.Errorf("%w: %d elements do not fit into %s", ErrNotConvertible, v.Len(), dst)
		}

		out := reflect.New(dst).Elem()
		for i := 0; i < v.Len(); i++ {
			elem, err := convertValue(v.Index(i), dst.Elem(), allowed)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}

			out.Index(i).Set(elem)
		}

		return out, nil

	case dst.Kind() == reflect.Map && v.Kind() == reflect.Map:
		out := reflect.MakeMapWithSize(dst, v.Len())

		iter := v.MapRange()
		for iter.Next() {
			key, err := convertValue(iter.Key(), dst.Key(), allowed)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("key %v: %w", iter.Key(), err)
			}

			elem, err := convertValue(iter.Value(), dst.Elem(), allowed)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("key %v: %w", iter.Key(), err)
			}

			out.SetMapIndex(key, elem)
		}

		return out, nil
	}

	if v.Kind() == dst.Kind() && v.Type().ConvertibleTo(dst) {
		return v.Convert(dst), nil
	}

	return reflect.Value{}, notConvertible(v.Type(), dst)
}

func notConvertible(src, dst reflect.Type) error {
	return fmt.Errorf("%w: %s to %s", ErrNotConvertible, src, dst)
}

func convertPrimitive(v reflect.Value, srcKind KindEnum, dst reflect.Type, dstKind KindEnum) (reflect.Value, error) {
	out := reflect.New(dst).Elem()

	switch {
	case srcKind == dstKind:
		out.Set(v.Convert(dst))

	case srcKind.IsNumber() && dstKind.IsNumber():
		return out, setNumber(out, dstKind, v, srcKind)

	case srcKind == KindString && dstKind.IsNumber():
		return out, parseNumber(out, dstKind, v.String())

	case srcKind.IsNumber() && dstKind == KindString:
		out.SetString(formatNumber(v, srcKind))

	case srcKind.IsInteger() && dstKind == KindBool:
		n := asFloat(v, srcKind)
		if n != 0 && n != 1 {
			return out, fmt.Errorf("%w: only numbers 0 and 1 are allowed for bool, got: %v", ErrNotConvertible, v)
		}

		out.SetBool(n == 1)

	case srcKind == KindBool && dstKind.IsNumber():
		var n float64
		if v.Bool() {
			n = 1
		}

		return out, setNumber(out, dstKind, reflect.ValueOf(n), KindFloat64)

	case srcKind == KindString && dstKind == KindBool:
		switch strings.ToLower(v.String()) {
		default:
			return out, fmt.Errorf("%w: only strings true/false, yes/no, on/off are allowed for bool, got: %s", ErrNotConvertible, v.String())
		case "true", "yes", "on", "1", "t":
			out.SetBool(true)
		case "false", "no", "off", "0", "f":
			out.SetBool(false)
		}

	case srcKind == KindBool && dstKind == KindString:
		out.SetString(strconv.FormatBool(v.Bool()))

	case srcKind == KindString && dstKind == KindTime:
		t, err := time.Parse(time.RFC3339Nano, v.String())
		if err != nil {
			return out, fmt.Errorf("%w: %w", ErrNotConvertible, err)
		}

		out.Set(reflect.ValueOf(t).Convert(dst))

	case srcKind == KindTime && dstKind == KindString:
		out.SetString(v.Interface().(time.Time).Format(time.RFC3339Nano))

	case srcKind.IsInteger() && dstKind == KindTime:
		out.Set(reflect.ValueOf(time.Unix(int64(asFloat(v, srcKind)), 0)).Convert(dst))

	case srcKind == KindTime && dstKind.IsInteger():
		unix := v.Interface().(time.Time).Unix()
		return out, setNumber(out, dstKind, reflect.ValueOf(unix), KindInt64)

	case srcKind == KindString && dstKind == KindDuration:
		d, err := time.ParseDuration(v.String())
		if err != nil {
			return out, fmt.Errorf("%w: %w", ErrNotConvertible, err)
		}

		out.SetInt(int64(d))

	case srcKind == KindDuration && dstKind == KindString:
		out.SetString(time.Duration(v.Int()).String())

	case srcKind.IsInteger() && dstKind == KindDuration:
		out.SetInt(int64(asFloat(v, srcKind)))

	case srcKind == KindDuration && dstKind.IsInteger():
		return out, setNumber(out, dstKind, reflect.ValueOf(v.Int()), KindInt64)

	case srcKind.IsFloat() && dstKind == KindDuration:
		out.SetInt(int64(v.Float() * float64(time.Second)))

	case srcKind == KindDuration && dstKind.IsFloat():
		out.SetFloat(time.Duration(v.Int()).Seconds())

	default:
		return out, notConvertible(v.Type(), dst)
	}

	return out, nil
}

func asFloat(v reflect.Value, kind KindEnum) float64 {
	switch {
	case kind.IsSigned():
		return float64(v.Int())
	case kind.IsUnsigned():
		return float64(v.Uint())
	default:
		return v.Float()
	}
}

func setNumber(out reflect.Value, dstKind KindEnum, v reflect.Value, srcKind KindEnum) error {
	switch {
	case dstKind.IsFloat():
		f := asFloat(v, srcKind)
		if out.OverflowFloat(f) {
			return fmt.Errorf("%w: %v overflows %s", ErrNotConvertible, f, out.Type())
		}

		out.SetFloat(f)

	case dstKind.IsSigned():
		var n int64

		switch {
		case srcKind.IsSigned():
			n = v.Int()
		case srcKind.IsUnsigned():
			if v.Uint() > math.MaxInt64 {
				return fmt.Errorf("%w: %v overflows %s", ErrNotConvertible, v.Uint(), out.Type())
			}

			n = int64(v.Uint())
		default:
			f := v.Float()
			if f > math.MaxInt64 || f < math.MinInt64 || math.IsNaN(f) {
				return fmt.Errorf("%w: %v overflows %s", ErrNotConvertible, f, out.Type())
			}

			n = int64(f)
		}

		if out.OverflowInt(n) {
			return fmt.Errorf("%w: %v overflows %s", ErrNotConvertible, n, out.Type())
		}

		out.SetInt(n)

	default:
		var n uint64

		switch {
		case srcKind.IsSigned():
			if v.Int() < 0 {
				return fmt.Errorf("%w: %v is negative for %s", ErrNotConvertible, v.Int(), out.Type())
			}

			n = uint64(v.Int())
		case srcKind.IsUnsigned():
			n = v.Uint()
		default:
			f := v.Float()
			if f < 0 || f > math.MaxUint64 || math.IsNaN(f) {
				return fmt.Errorf("%w: %v overflows %s", ErrNotConvertible, f, out.Type())
			}

			n = uint64(f)
		}

		if out.OverflowUint(n) {
			return fmt.Errorf("%w: %v overflows %s", ErrNotConvertible, n, out.Type())
		}

		out.SetUint(n)
	}

	return nil
}

func parseNumber(out reflect.Value, dstKind KindEnum, text string) error {
	text = strings.TrimSpace(text)

	switch {
	case dstKind.IsSigned():
		n, err := strconv.ParseInt(text, 10, dstKind.Bits())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNotConvertible, err)
		}

		out.SetInt(n)

	case dstKind.IsUnsigned():
		n, err := strconv.ParseUint(text, 10, dstKind.Bits())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNotConvertible, err)
		}

		out.SetUint(n)

	default:
		f, err := strconv.ParseFloat(text, dstKind.Bits())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNotConvertible, err)
		}

		out.SetFloat(f)
	}

	return nil
}

func formatNumber(v reflect.Value, kind KindEnum) string {
	switch {
	case kind.IsSigned():
		return strconv.FormatInt(v.Int(), 10)
	case kind.IsUnsigned():
		return strconv.FormatUint(v.Uint(), 10)
	default:
		return strconv.FormatFloat(v.Float(), 'f', -1, kind.Bits())
	}
}
