package wirebin

import (
	"bytes"
	"errors"
	"io"
	"reflect"
)

// WireUnmarshaler can read and decode itself from a stream.
type WireUnmarshaler interface {
	UnmarshalWire(io.Reader) error
}

var errBadPointer = errors.New("wirebin: cannot decode into invalid pointer")

// Unmarshal decodes b into v, which must be a pointer.
func Unmarshal(b []byte, v interface{}) error {
	return NewDecoder(bytes.NewBuffer(b)).Decode(v)
}

// UnmarshalAll decodes the encoded values in b into vs, which must be
// pointers.
func UnmarshalAll(b []byte, vs ...interface{}) error {
	return NewDecoder(bytes.NewBuffer(b)).DecodeAll(vs...)
}

// Decoder reads and decodes values from an input stream.
type Decoder struct {
	r io.Reader
}

// NewDecoder returns a new decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r}
}

// Decode reads the next encoded value from the stream into v, which must
// be a pointer.
func (d *Decoder) Decode(v interface{}) error {
	pval := reflect.ValueOf(v)
	if pval.Kind() != reflect.Ptr || pval.IsNil() {
		return errBadPointer
	}
	return d.decode(pval.Elem())
}

// DecodeAll decodes a variable number of arguments.
func (d *Decoder) DecodeAll(vs ...interface{}) error {
	for _, v := range vs {
		if err := d.Decode(v); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) decode(val reflect.Value) error {
	if val.CanAddr() && val.Addr().CanInterface() {
		if u, ok := val.Addr().Interface().(WireUnmarshaler); ok {
			return u.UnmarshalWire(d.r)
		}
	}

	switch val.Kind() {
	case reflect.Ptr:
		isDefined, err := UnmarshalBool(d.r)
		if err != nil || !isDefined {
			return err
		}
		if val.IsNil() {
			val.Set(reflect.New(val.Type().Elem()))
		}
		return d.decode(val.Elem())

	case reflect.Bool:
		b, err := UnmarshalBool(d.r)
		if err != nil {
			return err
		}
		val.SetBool(b)
		return nil

	case reflect.Uint8:
		x, err := UnmarshalUint8(d.r)
		if err != nil {
			return err
		}
		val.SetUint(uint64(x))
		return nil

	case reflect.Uint32:
		x, err := UnmarshalUint32(d.r)
		if err != nil {
			return err
		}
		val.SetUint(uint64(x))
		return nil

	case reflect.Int:
		x, err := UnmarshalUint64(d.r)
		if err != nil {
			return err
		}
		val.SetInt(int64(x))
		return nil

	case reflect.Int64:
		x, err := UnmarshalUint64(d.r)
		if err != nil {
			return err
		}
		val.SetInt(int64(x))
		return nil

	case reflect.Uint64:
		x, err := UnmarshalUint64(d.r)
		if err != nil {
			return err
		}
		val.SetUint(x)
		return nil

	case reflect.Uint:
		x, err := UnmarshalUint64(d.r)
		if err != nil {
			return err
		}
		val.SetUint(x)
		return nil

	case reflect.Int32:
		x, err := UnmarshalUint32(d.r)
		if err != nil {
			return err
		}
		val.SetInt(int64(int32(x)))
		return nil

	case reflect.Uint16:
		x, err := UnmarshalUint16(d.r)
		if err != nil {
			return err
		}
		val.SetUint(uint64(x))
		return nil

	case reflect.Int16:
		x, err := UnmarshalUint16(d.r)
		if err != nil {
			return err
		}
		val.SetInt(int64(int16(x)))
		return nil

	case reflect.Int8:
		x, err := UnmarshalUint8(d.r)
		if err != nil {
			return err
		}
		val.SetInt(int64(int8(x)))
		return nil

	case reflect.String:
		strLen, err := decodeSliceLength(d.r)
		if err != nil {
			return err
		}
		b, err := d.readN(strLen)
		if err != nil {
			return err
		}
		val.SetString(string(b))
		return nil

	case reflect.Slice:
		sliceLen, err := decodeSliceLength(d.r)
		if err != nil || sliceLen == 0 {
			return err
		}
		if uint64(sliceLen)*uint64(val.Type().Elem().Size()) > MaxSliceSize {
			return ErrSliceTooLarge
		}
		val.Set(reflect.MakeSlice(val.Type(), sliceLen, sliceLen))
		fallthrough
	case reflect.Array:
		if val.Type().Elem().Kind() == reflect.Uint8 {
			b := val.Slice(0, val.Len())
			_, err := io.ReadFull(d.r, b.Bytes())
			return err
		}
		for i := 0; i < val.Len(); i++ {
			if err := d.decode(val.Index(i)); err != nil {
				return err
			}
		}
		return nil

	case reflect.Map:
		n, err := decodeSliceLength(d.r)
		if err != nil {
			return err
		}
		val.Set(reflect.MakeMapWithSize(val.Type(), n))
		kt, vt := val.Type().Key(), val.Type().Elem()
		for i := 0; i < n; i++ {
			kv := reflect.New(kt).Elem()
			vv := reflect.New(vt).Elem()
			if err := d.decode(kv); err != nil {
				return err
			}
			if err := d.decode(vv); err != nil {
				return err
			}
			val.SetMapIndex(kv, vv)
		}
		return nil

	case reflect.Struct:
		for i := 0; i < val.NumField(); i++ {
			if isFieldHidden(val, i) {
				continue
			}
			if err := d.decode(val.Field(i)); err != nil {
				return err
			}
		}
		return nil

	default:
		return errors.New("wirebin: unknown type")
	}
}

func (d *Decoder) readN(n int) ([]byte, error) {
	if buf, ok := d.r.(*bytes.Buffer); ok {
		b := buf.Next(n)
		if len(b) != n {
			return nil, io.ErrUnexpectedEOF
		}
		return b, nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		return nil, err
	}
	return b, nil
}
