package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrBadDuration = errors.New("config: duration must be a string like \"20s\" or a number of seconds")

// Duration is a time.Duration written as "1m30s" or as a number of seconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch val := v.(type) {
	case nil:
		*d = 0
	case float64:
		*d = Duration(val * float64(time.Second))
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBadDuration, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("%w: got %s", ErrBadDuration, data)
	}

	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }
