// Package rules holds the named coercions and checks that table schemas
// refer to, together with the static vocabularies and field relationships
// they consult. Names are resolved to function values once, when a schema
// is bound to a validator.
package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Batch identifies the submission batch a run validates. A batch is either a
// small positive number, which bounds the `_A{n}` suffix of batch-suffixed
// ids, or an opaque token that ids must end with.
type Batch struct {
	Number int
	Token  string
}

// ParseBatch interprets s as a batch number when it is a positive integer
// and as a token otherwise.
func ParseBatch(s string) (Batch, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Batch{}, errors.New("batch is empty")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 {
			return Batch{}, fmt.Errorf("batch number must be positive, got %d", n)
		}
		return Batch{Number: n}, nil
	}
	return Batch{Token: s}, nil
}

// IsZero reports whether no batch was set.
func (b Batch) IsZero() bool {
	return b.Number == 0 && b.Token == ""
}

func (b Batch) String() string {
	if b.Token != "" {
		return b.Token
	}
	return strconv.Itoa(b.Number)
}

// suffixStart returns the index where the batch suffix of id begins, or -1.
func (b Batch) suffixStart(id string) int {
	if b.Token != "" {
		if strings.HasSuffix(id, "_"+b.Token) {
			return len(id) - len(b.Token) - 1
		}
		return -1
	}
	i := strings.LastIndex(id, "_A")
	if i < 0 || !isDigits(id[i+2:]) {
		return -1
	}
	return i
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SuffixOK reports whether id ends with a suffix valid for this batch.
func (b Batch) SuffixOK(id string) bool {
	i := b.suffixStart(id)
	if i < 0 {
		return false
	}
	if b.Token != "" {
		return true
	}
	n, err := strconv.Atoi(id[i+2:])
	return err == nil && n >= 1 && n <= b.Number
}

// TrimSuffix removes the batch suffix from id. ok is false when id carries no
// recognizable suffix.
func (b Batch) TrimSuffix(id string) (string, bool) {
	i := b.suffixStart(id)
	if i < 0 {
		return id, false
	}
	return id[:i], true
}

func (b Batch) suffixMessage() string {
	if b.Token != "" {
		return fmt.Sprintf("Value must end with _%s", b.Token)
	}
	return fmt.Sprintf("Value must end with _A and a number between 1 and %d, inclusively", b.Number)
}

// Env is the per-run context coercions and checks may read.
type Env struct {
	Batch  Batch
	Bucket string
}
