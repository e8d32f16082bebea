// Package forms declares the metadata forms in CUE and builds validated
// metadata from raw field input.
//
// The schemas live in forms.cue and are compiled once with the CUE Go API.
// A Form lists its fields in wire order; Build trims input, enforces
// required and integer fields, and renders absent optional fields as null.
package forms

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/slipdesk/internal/model"
)

//go:embed forms.cue
var formsCUE string

// Form names.
const (
	Intake = "intake"
	Manual = "manual"
)

// Field kinds.
const (
	KindString = "string"
	KindInt    = "int"
)

// Field formats applied on the wire by the manual flow.
const (
	FormatDate = "date"
	FormatTime = "time"
)

// Field describes one form field.
type Field struct {
	Name     string
	Required bool
	Kind     string
	Min      *int64
	Default  string
	Persist  bool

	// Wire is the key sent to the backend when it differs from Name.
	Wire   string
	Format string
}

// WireName returns the key the backend expects for the field.
func (f Field) WireName() string {
	if f.Wire != "" {
		return f.Wire
	}
	return f.Name
}

// Form is a compiled form schema.
type Form struct {
	Name      string
	Namespace string
	Fields    []Field
}

// Persisted returns the names of the fields kept in the field cache.
func (f *Form) Persisted() []string {
	var names []string
	for _, fd := range f.Fields {
		if fd.Persist {
			names = append(names, fd.Name)
		}
	}
	return names
}

// Defaults returns the default value of every field that declares one.
func (f *Form) Defaults() map[string]string {
	out := make(map[string]string)
	for _, fd := range f.Fields {
		if fd.Default != "" {
			out[fd.Name] = fd.Default
		}
	}
	return out
}

// Field returns the named field.
func (f *Form) Field(name string) (Field, bool) {
	for _, fd := range f.Fields {
		if fd.Name == name {
			return fd, true
		}
	}
	return Field{}, false
}

// Build validates values against the form and returns metadata in field order.
//
// Values are trimmed. Empty optional fields become nil. The first failing
// field is reported as a *FieldError.
func (f *Form) Build(values map[string]string) (model.Metadata, error) {
	meta := make(model.Metadata, 0, len(f.Fields))
	for _, fd := range f.Fields {
		raw := strings.TrimSpace(values[fd.Name])
		if raw == "" {
			if fd.Required {
				return nil, &FieldError{Field: fd.Name, Code: ErrCodeMissing, Message: "field is required"}
			}
			meta.Set(fd.Name, nil)
			continue
		}

		switch fd.Kind {
		case KindInt:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, &FieldError{Field: fd.Name, Code: ErrCodeInvalid, Message: fmt.Sprintf("%q is not an integer", raw)}
			}
			if fd.Min != nil && int64(n) < *fd.Min {
				return nil, &FieldError{Field: fd.Name, Code: ErrCodeInvalid, Message: fmt.Sprintf("must be at least %d", *fd.Min)}
			}
			meta.Set(fd.Name, n)
		default:
			meta.Set(fd.Name, raw)
		}
	}
	return meta, nil
}

var (
	loadOnce sync.Once
	loaded   map[string]*Form
	loadErr  error
)

// Load compiles the embedded schemas. The result is cached.
func Load() (map[string]*Form, error) {
	loadOnce.Do(func() {
		loaded, loadErr = Compile(formsCUE)
	})
	return loaded, loadErr
}

// Get returns the named form from the embedded schemas.
func Get(name string) (*Form, error) {
	all, err := Load()
	if err != nil {
		return nil, err
	}
	f, ok := all[name]
	if !ok {
		return nil, fmt.Errorf("unknown form %q", name)
	}
	return f, nil
}

// MustGet is Get for the built-in form names. Panics on error.
func MustGet(name string) *Form {
	f, err := Get(name)
	if err != nil {
		panic(err)
	}
	return f
}

// Compile parses CUE source holding a top-level "form" struct.
func Compile(src string) (map[string]*Form, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("forms.cue"))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(); err != nil {
		return nil, formatCUEError(err)
	}

	formsVal := v.LookupPath(cue.ParsePath("form"))
	if !formsVal.Exists() {
		return nil, &SchemaError{Field: "form", Message: "no forms declared"}
	}

	iter, err := formsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	out := make(map[string]*Form)
	for iter.Next() {
		form, err := compileForm(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		out[form.Name] = form
	}
	return out, nil
}

func compileForm(name string, v cue.Value) (*Form, error) {
	form := &Form{Name: name}

	ns, err := lookupString(v, "namespace")
	if err != nil {
		return nil, err
	}
	form.Namespace = ns

	list, err := v.LookupPath(cue.ParsePath("fields")).List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for list.Next() {
		fd, err := compileField(list.Value())
		if err != nil {
			return nil, err
		}
		if _, dup := form.Field(fd.Name); dup {
			return nil, &SchemaError{Field: name + "." + fd.Name, Message: "duplicate field", Pos: list.Value().Pos()}
		}
		form.Fields = append(form.Fields, fd)
	}
	return form, nil
}

func compileField(v cue.Value) (Field, error) {
	var (
		fd  Field
		err error
	)
	if fd.Name, err = lookupString(v, "name"); err != nil {
		return fd, err
	}
	if fd.Required, err = lookupBool(v, "required"); err != nil {
		return fd, err
	}
	if fd.Persist, err = lookupBool(v, "persist"); err != nil {
		return fd, err
	}
	if fd.Kind, err = lookupString(v, "kind"); err != nil {
		return fd, err
	}
	if fd.Default, err = optionalString(v, "default"); err != nil {
		return fd, err
	}
	if fd.Wire, err = optionalString(v, "wire"); err != nil {
		return fd, err
	}
	if fd.Format, err = optionalString(v, "format"); err != nil {
		return fd, err
	}

	if minVal := v.LookupPath(cue.ParsePath("min")); minVal.Exists() {
		n, err := minVal.Int64()
		if err != nil {
			return fd, formatCUEError(err)
		}
		fd.Min = &n
	}
	return fd, nil
}

func lookupString(v cue.Value, path string) (string, error) {
	x := v.LookupPath(cue.ParsePath(path))
	if !x.Exists() {
		return "", &SchemaError{Field: path, Message: "field is required", Pos: v.Pos()}
	}
	d, _ := x.Default()
	s, err := d.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, path string) (string, error) {
	if !v.LookupPath(cue.ParsePath(path)).Exists() {
		return "", nil
	}
	return lookupString(v, path)
}

func lookupBool(v cue.Value, path string) (bool, error) {
	x := v.LookupPath(cue.ParsePath(path))
	if !x.Exists() {
		return false, nil
	}
	d, _ := x.Default()
	b, err := d.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// SchemaError reports an invalid form declaration.
type SchemaError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *SchemaError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &SchemaError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
