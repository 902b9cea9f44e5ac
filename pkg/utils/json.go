package utils

import (
	"encoding/json"
	"io"
	"os"
)

func Decode[T any](reader io.Reader) (T, error) {
	decoder := json.NewDecoder(reader)
	var t T
	return t, decoder.Decode(&t)
}

func DecodeAndClose[T any](reader io.ReadCloser) (T, error) {
	defer reader.Close()
	return Decode[T](reader)
}

func Encode[T any](w io.Writer, t T) error {
	encoder := json.NewEncoder(w)
	return encoder.Encode(t)
}

func EncodeIndent[T any](w io.Writer, t T, indent string) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", indent)
	return encoder.Encode(t)
}

// SaveFile encodes t as indented JSON into name, replacing any existing file.
func SaveFile[T any](name string, t T) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := EncodeIndent(f, t, "  "); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile decodes the JSON file name into a T.
func LoadFile[T any](name string) (T, error) {
	f, err := os.Open(name)
	if err != nil {
		var t T
		return t, err
	}
	return DecodeAndClose[T](f)
}
