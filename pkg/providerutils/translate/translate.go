// Package translate provides the micro-translations adapters compose in
// their TranslateOptions implementations: renaming provider-specific
// option keys, dropping unsupported ones with a warning, and enforcing
// mutually exclusive pairs. Translations operate on the parameter map
// built by CallOptions.ToParams (sampling options merged with
// ProviderOptions); warnings accumulate and are surfaced at the call
// boundary without failing the call.
package translate

import (
	"fmt"

	llmerrors "github.com/digitallysavvy/go-llm/pkg/provider/errors"
)

// Step is one micro-translation over an options map. It returns a warning
// string ("" for none) or an error for hard violations.
type Step func(opts map[string]any) (string, error)

// Rename moves the value under oldKey to newKey. Both keys present is an
// invalid_parameter error since the caller's intent is ambiguous.
func Rename(oldKey, newKey string) Step {
	return func(opts map[string]any) (string, error) {
		val, ok := opts[oldKey]
		if !ok {
			return "", nil
		}
		if _, both := opts[newKey]; both {
			return "", llmerrors.Newf(llmerrors.KindInvalidParameter,
				"options %q and %q are mutually exclusive", oldKey, newKey)
		}
		delete(opts, oldKey)
		opts[newKey] = val
		return "", nil
	}
}

// Drop removes key and emits warning when the key was present. An empty
// warning drops silently.
func Drop(key, warning string) Step {
	return func(opts map[string]any) (string, error) {
		if _, ok := opts[key]; !ok {
			return "", nil
		}
		delete(opts, key)
		return warning, nil
	}
}

// Mutex fails with invalid_parameter when more than one of keys is set.
func Mutex(keys ...string) Step {
	return func(opts map[string]any) (string, error) {
		var set []string
		for _, key := range keys {
			if _, ok := opts[key]; ok {
				set = append(set, key)
			}
		}
		if len(set) > 1 {
			return "", llmerrors.Newf(llmerrors.KindInvalidParameter,
				"options %v are mutually exclusive", set)
		}
		return "", nil
	}
}

// Apply folds steps over opts, collecting warnings. The map is mutated in
// place; the first hard error aborts.
func Apply(opts map[string]any, steps ...Step) ([]string, error) {
	var warnings []string
	for _, step := range steps {
		warning, err := step(opts)
		if err != nil {
			return warnings, err
		}
		if warning != "" {
			warnings = append(warnings, warning)
		}
	}
	return warnings, nil
}

// UnsupportedWarning renders the conventional warning for an option a
// model family does not accept.
func UnsupportedWarning(model, option string) string {
	return fmt.Sprintf("%s models do not support %s; the option was dropped", model, option)
}
