package collection

import (
	"encoding/binary"

	"github.com/google/uuid"
)

const guidAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!#$%&()*+,-./:;<=>?@[]^_`{|}~"

// NewGUID returns a random note guid in Anki's base-91 form.
func NewGUID() string {
	u := uuid.New()
	return base91(binary.BigEndian.Uint64(u[:8]))
}

func base91(n uint64) string {
	if n == 0 {
		return guidAlphabet[:1]
	}
	var buf []byte
	base := uint64(len(guidAlphabet))
	for n > 0 {
		buf = append(buf, guidAlphabet[n%base])
		n /= base
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}
