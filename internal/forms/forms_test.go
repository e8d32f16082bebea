package forms

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_BuiltinForms(t *testing.T) {
	all, err := Load()
	require.NoError(t, err)
	require.Contains(t, all, Intake)
	require.Contains(t, all, Manual)

	intake := all[Intake]
	assert.Equal(t, "intake", intake.Namespace)
	assert.Equal(t,
		[]string{"producto", "numero_personas", "nombre", "correo", "sucursal", "telefono", "observaciones"},
		intake.Persisted())
	assert.Equal(t, map[string]string{"sucursal": "sede pereira"}, intake.Defaults())
}

func TestManualForm_WireNamesAndFormats(t *testing.T) {
	manual := MustGet(Manual)

	assert.Equal(t,
		[]string{"nombre", "correo", "numero_personas", "producto", "sucursal"},
		manual.Persisted())

	fecha, ok := manual.Field("fecha")
	require.True(t, ok)
	assert.Equal(t, "FECHA", fecha.WireName())
	assert.Equal(t, FormatDate, fecha.Format)
	assert.False(t, fecha.Persist)

	nombre, _ := manual.Field("nombre")
	assert.Equal(t, "nombre", nombre.WireName())
	assert.Equal(t, KindString, nombre.Kind)
}

func TestBuild_OptionalFieldsAreNull(t *testing.T) {
	meta, err := MustGet(Intake).Build(map[string]string{
		"producto":        " ESTA ",
		"numero_personas": "2",
		"nombre":          "Ana",
		"sucursal":        "sede pereira",
	})
	require.NoError(t, err)

	got, err := json.Marshal(meta)
	require.NoError(t, err)
	assert.Equal(t,
		`{"producto":"ESTA","numero_personas":2,"nombre":"Ana","correo":null,"sucursal":"sede pereira","telefono":null,"observaciones":null}`,
		string(got))
}

func TestBuild_Validation(t *testing.T) {
	valid := map[string]string{
		"producto":        "ESTA",
		"numero_personas": "1",
		"nombre":          "Ana",
		"sucursal":        "sede pereira",
	}
	with := func(k, v string) map[string]string {
		out := make(map[string]string, len(valid))
		for kk, vv := range valid {
			out[kk] = vv
		}
		out[k] = v
		return out
	}

	tests := []struct {
		name  string
		input map[string]string
		field string
		code  FieldErrorCode
	}{
		{"missing nombre", with("nombre", "   "), "nombre", ErrCodeMissing},
		{"missing producto", with("producto", ""), "producto", ErrCodeMissing},
		{"missing sucursal", with("sucursal", ""), "sucursal", ErrCodeMissing},
		{"zero personas", with("numero_personas", "0"), "numero_personas", ErrCodeInvalid},
		{"non-integer personas", with("numero_personas", "dos"), "numero_personas", ErrCodeInvalid},
		{"empty personas", with("numero_personas", ""), "numero_personas", ErrCodeMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MustGet(Intake).Build(tt.input)
			require.Error(t, err)
			require.True(t, IsFieldError(err))

			fe := err.(*FieldError)
			assert.Equal(t, tt.field, fe.Field)
			assert.Equal(t, tt.code, fe.Code)
		})
	}
}

func TestCompile_RejectsBadSchema(t *testing.T) {
	_, err := Compile(`
#Field: {name: string, required: bool | *false, kind: *"string" | "int", persist: bool | *true}
#Form: {namespace: string, fields: [...#Field]}
form: [Name=string]: #Form & {namespace: string | *Name}
form: broken: fields: [{name: "a", kind: "float"}]
`)
	assert.Error(t, err)
}

func TestCompile_DuplicateField(t *testing.T) {
	_, err := Compile(`
#Field: {name: string, required: bool | *false, kind: *"string" | "int", persist: bool | *true}
#Form: {namespace: string, fields: [...#Field]}
form: [Name=string]: #Form & {namespace: string | *Name}
form: dup: fields: [{name: "a"}, {name: "a"}]
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate field")
}

func TestGet_UnknownForm(t *testing.T) {
	_, err := Get("nope")
	assert.Error(t, err)
}
