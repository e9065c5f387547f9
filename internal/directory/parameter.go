package directory

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Parameter is a typed name-value pair used to configure a user directory.
// Values are stored as strings; the typed accessors on Parameters perform
// the conversion at read time.
type Parameter struct {
	// Name is the parameter name (matched case-insensitively).
	Name string `json:"name"`
	// Value is the parameter value.
	Value string `json:"value"`
}

// Parameters is the ordered parameter list a directory provider is
// constructed with. Order is preserved through serialization.
type Parameters []Parameter

// Contains reports whether a parameter with the given name exists.
func (ps Parameters) Contains(name string) bool {
	for _, p := range ps {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}

	return false
}

// String returns the value of the named parameter, or def if it is absent.
func (ps Parameters) String(name, def string) string {
	for _, p := range ps {
		if strings.EqualFold(p.Name, name) {
			return p.Value
		}
	}

	return def
}

// Int returns the value of the named parameter as an int, or def if it is
// absent. A present but unparseable value is an ErrInvalidConfiguration.
func (ps Parameters) Int(name string, def int) (int, error) {
	for _, p := range ps {
		if !strings.EqualFold(p.Name, name) {
			continue
		}

		v, err := strconv.Atoi(p.Value)
		if err != nil {
			return 0, fmt.Errorf("%w: parameter %s: %q is not an integer", ErrInvalidConfiguration, p.Name, p.Value)
		}

		return v, nil
	}

	return def, nil
}

// Bool returns the value of the named parameter as a bool, or def if it is
// absent. A present but unparseable value is an ErrInvalidConfiguration.
func (ps Parameters) Bool(name string, def bool) (bool, error) {
	for _, p := range ps {
		if !strings.EqualFold(p.Name, name) {
			continue
		}

		v, err := strconv.ParseBool(p.Value)
		if err != nil {
			return false, fmt.Errorf("%w: parameter %s: %q is not a boolean", ErrInvalidConfiguration, p.Name, p.Value)
		}

		return v, nil
	}

	return def, nil
}

// Duration returns the value of the named parameter as a duration
// (e.g. "15s"), or def if it is absent.
func (ps Parameters) Duration(name string, def time.Duration) (time.Duration, error) {
	for _, p := range ps {
		if !strings.EqualFold(p.Name, name) {
			continue
		}

		v, err := time.ParseDuration(p.Value)
		if err != nil {
			return 0, fmt.Errorf("%w: parameter %s: %q is not a duration", ErrInvalidConfiguration, p.Name, p.Value)
		}

		return v, nil
	}

	return def, nil
}

// MarshalParameters serializes an ordered parameter list to its stored
// configuration representation.
func MarshalParameters(ps Parameters) ([]byte, error) {
	out, err := json.Marshal(ps)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	return out, nil
}

// UnmarshalParameters parses the stored configuration representation back
// into an ordered parameter list. Round-tripping preserves order and values.
func UnmarshalParameters(data []byte) (Parameters, error) {
	if len(data) == 0 {
		return Parameters{}, nil
	}

	var ps Parameters
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	return ps, nil
}
