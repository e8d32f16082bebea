package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/slipdesk/internal/fieldcache"
	"github.com/roach88/slipdesk/internal/forms"
)

// formState is one form's values: the cached fields restored from the store
// with the --field flags laid over them.
type formState struct {
	form   *forms.Form
	cache  *fieldcache.Cache
	values map[string]string
}

// loadFormState restores the named form and applies the --field overrides.
// Overrides of persisted fields are written back to the store.
func (o *RootOptions) loadFormState(st fieldcache.Storage, name string, flags []string) (*formState, error) {
	form, err := forms.Get(name)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load form", err)
	}
	overrides, err := parseFieldFlags(form, flags)
	if err != nil {
		return nil, err
	}

	cache := fieldcache.New(st, form.Namespace, form.Persisted(), form.Defaults(), o.Logger)
	values := cache.Restore()
	for k, v := range form.Defaults() {
		if _, ok := values[k]; !ok {
			values[k] = v
		}
	}
	for k, v := range overrides {
		values[k] = v
	}
	cache.Apply(overrides)

	return &formState{form: form, cache: cache, values: values}, nil
}

// parseFieldFlags turns repeated name=value flags into a map. Every name
// must be a field of form.
func parseFieldFlags(form *forms.Form, flags []string) (map[string]string, error) {
	out := make(map[string]string, len(flags))
	for _, f := range flags {
		name, value, ok := strings.Cut(f, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid --field %q: want name=value", f))
		}
		if _, known := form.Field(name); !known {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown field %q for form %s (fields: %s)", name, form.Name, strings.Join(fieldNames(form), ", ")))
		}
		out[name] = value
	}
	return out, nil
}

func fieldNames(form *forms.Form) []string {
	names := make([]string, len(form.Fields))
	for i, f := range form.Fields {
		names[i] = f.Name
	}
	return names
}

// formNames returns the built-in form names in sorted order.
func formNames() ([]string, error) {
	all, err := forms.Load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
