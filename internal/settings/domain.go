package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Kind declares how a setting's stored text value is interpreted.
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
	KindJSON    Kind = "json"
	KindText    Kind = "text"
)

// Valid reports whether the kind is one of the declared set.
func (k Kind) Valid() bool {
	switch k {
	case KindString, KindInteger, KindBoolean, KindJSON, KindText:
		return true
	}
	return false
}

// Well-known setting keys.
const (
	KeyMaintenanceMode    = "maintenance_mode"
	KeyMaintenanceMessage = "maintenance_message"
	KeyFreePostsLimit     = "free_posts_limit"
	KeySiteName           = "site_name"
)

// DefaultFreePostsLimit applies when free_posts_limit is absent.
const DefaultFreePostsLimit = 3

// ErrNotFound indicates the key has no stored value.
var ErrNotFound = errors.New("settings: not found")

// Setting is one stored configuration value.
type Setting struct {
	Key       string
	Value     string
	Kind      Kind
	UpdatedAt time.Time
}

// Bool interprets the value as a boolean. The legacy store wrote "1"/"0";
// the usual textual spellings are accepted too.
func (s Setting) Bool() (bool, error) {
	switch s.Value {
	case "1", "true", "yes", "on":
		return true, nil
	case "", "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("settings: %s: bad boolean %q", s.Key, s.Value)
}

// Int interprets the value as an integer.
func (s Setting) Int() (int, error) {
	n, err := strconv.Atoi(s.Value)
	if err != nil {
		return 0, fmt.Errorf("settings: %s: bad integer %q", s.Key, s.Value)
	}
	return n, nil
}

// JSON unmarshals the value into dest.
func (s Setting) JSON(dest any) error {
	if err := json.Unmarshal([]byte(s.Value), dest); err != nil {
		return fmt.Errorf("settings: %s: bad json: %w", s.Key, err)
	}
	return nil
}

func validateValue(kind Kind, value string) error {
	switch kind {
	case KindInteger:
		_, err := Setting{Value: value}.Int()
		return err
	case KindBoolean:
		_, err := Setting{Value: value}.Bool()
		return err
	case KindJSON:
		return json.Unmarshal([]byte(value), new(any))
	}
	return nil
}
