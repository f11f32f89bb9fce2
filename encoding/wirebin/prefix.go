package wirebin

import (
	"fmt"
	"io"
)

// WriteDataSlice writes a length-prefixed byte slice to w.
func WriteDataSlice(w io.Writer, data []byte) error {
	dataLength := len(data)
	if err := encodeSliceLength(w, dataLength); err != nil {
		return err
	}
	n, err := w.Write(data)
	if err != nil {
		return err
	}
	if n != dataLength {
		err = io.ErrShortWrite
	}
	return err
}

// ReadDataSlice reads a length-prefixed byte slice, rejecting any prefix
// that claims more than maxLen bytes.
func ReadDataSlice(r io.Reader, maxLen int) ([]byte, error) {
	dataLen, err := decodeSliceLength(r)
	if err != nil {
		return nil, err
	}
	if dataLen > maxLen {
		return nil, fmt.Errorf("length %d exceeds maxLen of %d", dataLen, maxLen)
	}
	data := make([]byte, dataLen)
	_, err = io.ReadFull(r, data)
	return data, err
}

// WriteObject writes a length-prefixed, marshaled object to w.
func WriteObject(w io.Writer, v interface{}) error {
	b, err := Marshal(v)
	if err != nil {
		return err
	}
	return WriteDataSlice(w, b)
}

// ReadObject reads and decodes a length-prefixed, marshaled object.
func ReadObject(r io.Reader, obj interface{}, maxLen int) error {
	data, err := ReadDataSlice(r, maxLen)
	if err != nil {
		return err
	}
	return Unmarshal(data, obj)
}
