package worksheet

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// NotFoundError is returned when an operation references an element ID
// that is not in the document.
type NotFoundError struct {
	ID string
}

func (err *NotFoundError) Error() string {
	return fmt.Sprintf("element %q not found", err.ID)
}

// ElementProblem describes why one serialized element could not be rebuilt.
// Index is -1 for document-level problems.
type ElementProblem struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason"`
}

func (p ElementProblem) String() string {
	if p.Index < 0 {
		return p.Reason
	}
	return fmt.Sprintf("element %d (id=%q kind=%q): %s", p.Index, p.ID, p.Kind, p.Reason)
}

// CorruptDocumentError is returned by Decode when the serialized document
// is malformed or contains elements that cannot be reconstructed, and by
// Encode when the document holds elements Decode would reject.
type CorruptDocumentError struct {
	Problems []ElementProblem
}

func (err *CorruptDocumentError) Error() string {
	msgs := make([]string, 0, len(err.Problems))
	for _, p := range err.Problems {
		msgs = append(msgs, p.String())
	}
	return "corrupt worksheet document: " + strings.Join(msgs, "; ")
}

// Skipped is the number of elements that could not be reconstructed.
func (err *CorruptDocumentError) Skipped() int {
	seen := make(map[int]struct{})
	for _, p := range err.Problems {
		if p.Index >= 0 {
			seen[p.Index] = struct{}{}
		}
	}
	return len(seen)
}

// RegistryMissError is returned for an identifier that has no catalog entry.
type RegistryMissError struct {
	Identifier string
}

func (err *RegistryMissError) Error() string {
	return fmt.Sprintf("no catalog entry for %q", err.Identifier)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsCorrupt(err error) bool {
	var target *CorruptDocumentError
	return errors.As(err, &target)
}

func IsRegistryMiss(err error) bool {
	var target *RegistryMissError
	return errors.As(err, &target)
}
