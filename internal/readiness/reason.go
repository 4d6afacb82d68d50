package readiness

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ReasonCode names one failing readiness predicate.
type ReasonCode uint8

const (
	OpenWork ReasonCode = 1 << iota
	InvalidCertificate
	MaintenanceDue
	CleaningDue
)

var allCodes = []ReasonCode{OpenWork, InvalidCertificate, MaintenanceDue, CleaningDue}

func (c ReasonCode) String() string {
	switch c {
	case OpenWork:
		return "OPEN_WORK"
	case InvalidCertificate:
		return "INVALID_CERTIFICATE"
	case MaintenanceDue:
		return "MAINTENANCE_DUE"
	case CleaningDue:
		return "CLEANING_DUE"
	}
	return fmt.Sprintf("ReasonCode(%d)", uint8(c))
}

// Message is the operator-facing wording for a code.
func (c ReasonCode) Message() string {
	switch c {
	case OpenWork:
		return "open work orders"
	case InvalidCertificate:
		return "invalid fitness certificates"
	case MaintenanceDue:
		return "maintenance due"
	case CleaningDue:
		return "cleaning due"
	}
	return c.String()
}

// ParseReasonCode is the inverse of ReasonCode.String.
func ParseReasonCode(s string) (ReasonCode, error) {
	for _, c := range allCodes {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown reason code %q", s)
}

// ReasonSet is a set of ReasonCode values.
type ReasonSet uint8

func (s ReasonSet) Has(c ReasonCode) bool { return uint8(s)&uint8(c) != 0 }

func (s ReasonSet) With(c ReasonCode) ReasonSet { return ReasonSet(uint8(s) | uint8(c)) }

func (s ReasonSet) Empty() bool { return s == 0 }

// Codes lists members in declaration order.
func (s ReasonSet) Codes() []ReasonCode {
	out := []ReasonCode{}
	for _, c := range allCodes {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Strings lists member names in declaration order.
func (s ReasonSet) Strings() []string {
	codes := s.Codes()
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		out = append(out, c.String())
	}
	return out
}

func (s ReasonSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

func (s *ReasonSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var out ReasonSet
	for _, n := range names {
		c, err := ParseReasonCode(n)
		if err != nil {
			return err
		}
		out = out.With(c)
	}
	*s = out
	return nil
}

// Describe renders a human-readable sentence for the set.
func Describe(s ReasonSet) string {
	if s.Empty() {
		return "Ready for service"
	}
	parts := make([]string, 0, 4)
	for _, c := range s.Codes() {
		parts = append(parts, c.Message())
	}
	return "Not ready: " + strings.Join(parts, ", ")
}
