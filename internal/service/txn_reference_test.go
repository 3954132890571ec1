package service

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTransactionReferenceFormat(t *testing.T) {
	now := time.Date(2024, 1, 5, 23, 30, 0, 0, time.FixedZone("BDT", 6*3600))
	ref := NewTransactionReference(now)
	assert.Regexp(t, regexp.MustCompile(`^TXN-20240105-\d{6}$`), ref)
}
