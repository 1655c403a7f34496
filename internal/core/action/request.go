package action

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"
)

// ListType selects which relationship list is fetched for a target user.
type ListType string

const (
	ListFollowers ListType = "followers"
	ListFollowing ListType = "following"
)

// ListTypes returns the supported list types in display order.
func ListTypes() []ListType {
	return []ListType{ListFollowers, ListFollowing}
}

// Toggle returns the other list type.
func (t ListType) Toggle() ListType {
	if t == ListFollowing {
		return ListFollowers
	}
	return ListFollowing
}

// ListFilter holds the criteria for a contact list fetch.
type ListFilter struct {
	TargetUsername string
	ListType       ListType
	// Match is an optional glob applied to usernames after the fetch.
	Match string
}

// Validate checks the filter the same way the backend would.
func (f ListFilter) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("target_username", f.TargetUsername, required),
		criterio.Run("list_type", string(f.ListType), validListType),
		criterio.Run("match", f.Match, validGlob),
	)
}

// SendRequest holds the parameters for a bulk message job.
type SendRequest struct {
	// Recipients is the raw, comma-separated recipient field.
	Recipients    string `json:"recipients"`
	Message       string `json:"message"`
	MinDelay      int    `json:"min_delay"`
	MaxDelay      int    `json:"max_delay"`
	MaxRecipients int    `json:"max_recipients"`
}

// Validate mirrors the backend's checks so obvious mistakes are caught
// before a request is made.
func (r SendRequest) Validate() error {
	var errs criterio.FieldErrorsBuilder

	pks, err := ParsePKs(r.Recipients)
	switch {
	case err != nil:
		errs = errs.Append("recipients", err)
	case len(pks) == 0:
		errs = errs.Append("recipients", fmt.Errorf("no recipients provided"))
	}

	if strings.TrimSpace(r.Message) == "" {
		errs = errs.Append("message", fmt.Errorf("message cannot be empty"))
	}

	if r.MinDelay < 0 || r.MaxDelay < 0 || r.MinDelay > r.MaxDelay {
		errs = errs.Append("delay", fmt.Errorf("invalid delay range %d-%d", r.MinDelay, r.MaxDelay))
	}

	if r.MaxRecipients <= 0 {
		errs = errs.Append("max_recipients", fmt.Errorf("must be a positive number"))
	}

	return errs.ToError()
}

// FilterContacts keeps the contacts whose username matches pattern.
// An empty pattern keeps everything.
func FilterContacts(contacts []Contact, pattern string) ([]Contact, error) {
	if pattern == "" {
		return contacts, nil
	}

	out := make([]Contact, 0, len(contacts))
	for _, c := range contacts {
		ok, err := doublestar.Match(pattern, c.Username)
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", pattern, err)
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("is required")
	}
	return nil
}

func validListType(t string) error {
	for _, lt := range ListTypes() {
		if ListType(t) == lt {
			return nil
		}
	}
	return fmt.Errorf("invalid list type %q: must be 'followers' or 'following'", t)
}

func validGlob(pattern string) error {
	if pattern == "" {
		return nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid pattern %q", pattern)
	}
	return nil
}
