package trace

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// VerifyResult is the outcome of verifying a trace file.
type VerifyResult struct {
	EventCount int
	Valid      bool
	BrokenAt   int // -1 if no break
	RunIDs     []string
	Error      string
}

// VerifyFile verifies the hash chain of a trace file.
func VerifyFile(path string) (*VerifyResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	defer f.Close()
	return Verify(f)
}

// Verify checks hash chain integrity. A file appended to by several runs is
// valid when each run's chain starts at Genesis.
func Verify(r io.Reader) (*VerifyResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	expected := Genesis
	runID := ""
	res := &VerifyResult{Valid: true, BrokenAt: -1}

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		res.EventCount++

		var evt Event
		if err := json.Unmarshal(line, &evt); err != nil {
			return broken(res, "event %d: invalid JSON: %v", res.EventCount, err), nil
		}
		if evt.RunID != runID {
			runID = evt.RunID
			expected = Genesis
			res.RunIDs = append(res.RunIDs, runID)
		}
		if evt.PrevHash != expected {
			return broken(res, "event %d: prev_hash mismatch", res.EventCount), nil
		}
		h := sha256.Sum256(line)
		expected = hex.EncodeToString(h[:])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return res, nil
}

func broken(res *VerifyResult, format string, args ...any) *VerifyResult {
	res.Valid = false
	res.BrokenAt = res.EventCount
	res.Error = fmt.Sprintf(format, args...)
	return res
}
