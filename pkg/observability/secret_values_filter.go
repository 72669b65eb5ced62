package observability

import (
	"fmt"
	"strings"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/pkg/field"
	loggertypes "github.com/facebookincubator/go-belt/tool/logger/types"
	"github.com/sasha-s/go-deadlock"
)

const secretPlaceholder = "<HIDDEN>"

// SecretValuesFilter replaces the secret words (like the Sentry DSN)
// in log messages with a placeholder. Only strings, byte slices,
// errors and fmt.Stringer values are inspected.
type SecretValuesFilter struct {
	locker      deadlock.RWMutex
	secretWords []string
}

var _ loggertypes.PreHook = (*SecretValuesFilter)(nil)

func NewSecretValuesFilter(secretWords ...string) *SecretValuesFilter {
	f := &SecretValuesFilter{}
	f.AddSecretWords(secretWords...)
	return f
}

func (sf *SecretValuesFilter) AddSecretWords(words ...string) {
	sf.locker.Lock()
	defer sf.locker.Unlock()
	for _, w := range words {
		if w == "" {
			continue
		}
		sf.secretWords = append(sf.secretWords, w)
	}
}

func (sf *SecretValuesFilter) FilterString(s string) string {
	sf.locker.RLock()
	defer sf.locker.RUnlock()
	for _, secret := range sf.secretWords {
		s = strings.ReplaceAll(s, secret, secretPlaceholder)
	}
	return s
}

func (sf *SecretValuesFilter) filterValue(v any) any {
	switch v := v.(type) {
	case string:
		return sf.FilterString(v)
	case []byte:
		censored := sf.FilterString(string(v))
		if censored == string(v) {
			return v
		}
		return []byte(censored)
	case error:
		censored := sf.FilterString(v.Error())
		if censored == v.Error() {
			return v
		}
		return fmt.Errorf("%s", censored)
	case fmt.Stringer:
		censored := sf.FilterString(v.String())
		if censored == v.String() {
			return v
		}
		return censored
	default:
		return v
	}
}

func (sf *SecretValuesFilter) ProcessInput(
	_ belt.TraceIDs,
	_ loggertypes.Level,
	args ...any,
) loggertypes.PreHookResult {
	for idx, arg := range args {
		args[idx] = sf.filterValue(arg)
	}
	return loggertypes.PreHookResult{}
}

func (sf *SecretValuesFilter) ProcessInputf(
	_ belt.TraceIDs,
	_ loggertypes.Level,
	_ string,
	args ...any,
) loggertypes.PreHookResult {
	for idx, arg := range args {
		args[idx] = sf.filterValue(arg)
	}
	return loggertypes.PreHookResult{}
}

func (sf *SecretValuesFilter) ProcessInputFields(
	_ belt.TraceIDs,
	_ loggertypes.Level,
	_ string,
	fields field.AbstractFields,
) loggertypes.PreHookResult {
	fields.ForEachField(func(f *field.Field) bool {
		f.Value = sf.filterValue(f.Value)
		return true
	})
	return loggertypes.PreHookResult{}
}
