// Package action defines the result contract of the bot actions and how each
// outcome is presented to the operator.
package action

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags an action Result.
type Kind string

const (
	KindSuccess    Kind = "success"
	KindWarning    Kind = "warning"
	KindProcessing Kind = "processing"
	KindError      Kind = "error"
)

// Contact is a backend-reported user that can receive a bulk message.
type Contact struct {
	PK       int64  `json:"pk"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// Result is the tagged union every action endpoint response is mapped into.
// Contacts is only meaningful for a successful list fetch.
type Result struct {
	Kind     Kind
	Message  string
	Contacts []Contact
}

// Succeeded reports whether r is a success or a started background job.
func (r Result) Succeeded() bool {
	return r.Kind == KindSuccess || r.Kind == KindProcessing
}

// JoinPKs projects contacts to their identifiers, comma-joined: "1, 2, 3".
func JoinPKs(contacts []Contact) string {
	parts := make([]string, len(contacts))
	for i, c := range contacts {
		parts[i] = strconv.FormatInt(c.PK, 10)
	}
	return strings.Join(parts, ", ")
}

// ParsePKs splits a comma-separated recipient field into identifiers.
// Blank entries are skipped.
func ParsePKs(s string) ([]int64, error) {
	var pks []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pk, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid recipient %q: must be numeric", part)
		}
		pks = append(pks, pk)
	}
	return pks, nil
}
