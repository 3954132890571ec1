package service

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// ReferenceGenerator produces human readable transaction references.
type ReferenceGenerator func(now time.Time) string

// NewTransactionReference formats TXN-<YYYYMMDD>-<6 digit random> using the UTC date.
func NewTransactionReference(now time.Time) string {
	var buf [4]byte
	n := uint32(0)
	if _, err := rand.Read(buf[:]); err == nil {
		n = binary.BigEndian.Uint32(buf[:])
	} else {
		n = uint32(now.UnixNano())
	}
	return fmt.Sprintf("TXN-%s-%06d", now.UTC().Format("20060102"), n%1000000)
}
