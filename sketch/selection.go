package sketch

import "fmt"

// Selection picks sketches by parameters. Zero fields match anything.
type Selection struct {
	Ksize   uint32 `json:"ksize,omitempty" yaml:"ksize,omitempty"`
	Scaled  uint32 `json:"scaled,omitempty" yaml:"scaled,omitempty"`
	Moltype string `json:"moltype,omitempty" yaml:"moltype,omitempty"`
}

// SelectionOf returns the selection describing mh exactly.
func SelectionOf(mh *MinHash) Selection {
	return Selection{Ksize: mh.Ksize(), Scaled: mh.Scaled(), Moltype: mh.Moltype()}
}

// Matches reports whether mh can be used under s. A sketch finer than
// s.Scaled matches because it can be downsampled.
func (s Selection) Matches(mh *MinHash) bool {
	if s.Ksize != 0 && s.Ksize != mh.Ksize() {
		return false
	}
	if s.Moltype != "" && s.Moltype != mh.Moltype() {
		return false
	}
	if s.Scaled != 0 && mh.Scaled() > s.Scaled {
		return false
	}
	return true
}

// CheckQuery validates that a query selection can be answered by an index
// built with s. The query must agree on ksize and molecule type and must not
// be finer than the index.
func (s Selection) CheckQuery(q Selection) error {
	if q.Ksize != 0 && q.Ksize != s.Ksize {
		return &MismatchError{Field: "ksize", Expected: s.Ksize, Actual: q.Ksize}
	}
	if q.Moltype != "" && q.Moltype != s.Moltype {
		return &MismatchError{Field: "moltype", Expected: s.Moltype, Actual: q.Moltype}
	}
	if q.Scaled != 0 && q.Scaled < s.Scaled {
		return &MismatchError{Field: "scaled", Expected: fmt.Sprintf(">= %d", s.Scaled), Actual: q.Scaled}
	}
	return nil
}

func (s Selection) String() string {
	return fmt.Sprintf("ksize=%d scaled=%d moltype=%s", s.Ksize, s.Scaled, s.Moltype)
}
