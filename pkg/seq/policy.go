package seq

import (
	"fmt"
	"strings"
)

// MarkerPolicy decides what happens when a body holds more than one
// #( ... )* repeat block.
type MarkerPolicy int

// MarkerPolicy constants.
const (
	// PolicyFirst expands the first block in depth-first order and leaves
	// later ones as literal tokens.
	PolicyFirst MarkerPolicy = iota
	// PolicyAll expands every block.
	PolicyAll
	// PolicyReject fails with *AmbiguousMarkerError on a second block.
	PolicyReject
)

var policyNames = map[MarkerPolicy]string{
	PolicyFirst:  "first",
	PolicyAll:    "all",
	PolicyReject: "reject",
}

// PolicyNames lists the accepted policy names in declaration order.
func PolicyNames() []string {
	return []string{"first", "all", "reject"}
}

func (p MarkerPolicy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("MarkerPolicy(%d)", int(p))
}

// ParseMarkerPolicy converts a policy name into a MarkerPolicy.
// The empty string selects PolicyFirst.
func ParseMarkerPolicy(s string) (MarkerPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return PolicyFirst, nil
	case "all":
		return PolicyAll, nil
	case "reject":
		return PolicyReject, nil
	}
	return PolicyFirst, fmt.Errorf("%w %q (valid: %s)", ErrUnknownPolicy, s, strings.Join(PolicyNames(), ", "))
}

// MarshalText implements encoding.TextMarshaler.
func (p MarkerPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *MarkerPolicy) UnmarshalText(text []byte) error {
	v, err := ParseMarkerPolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
