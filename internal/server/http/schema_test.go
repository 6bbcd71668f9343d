package httpserver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/sakhatype/internal/errs"
)

func TestSubmissionSchema(t *testing.T) {
	t.Parallel()
	sc, err := compileSchemas([]int{15, 60})
	require.NoError(t, err)

	ok := []string{
		`{"wpm":62.4,"raw_wpm":65,"accuracy":96.9,"burst_wpm":80,"total_errors":3,"time_mode":60,"test_duration":60}`,
		`{"wpm":0,"raw_wpm":0,"accuracy":0,"burst_wpm":0,"total_errors":0,"time_mode":15,"test_duration":0,"consistency":0}`,
	}
	for _, body := range ok {
		require.NoError(t, validateRaw(sc.submission, []byte(body)), body)
	}

	bad := map[string]string{
		"missing wpm":       `{"raw_wpm":65,"accuracy":96.9,"burst_wpm":80,"total_errors":3,"time_mode":60,"test_duration":60}`,
		"mode outside set":  `{"wpm":1,"raw_wpm":1,"accuracy":1,"burst_wpm":1,"total_errors":0,"time_mode":30,"test_duration":30}`,
		"negative duration": `{"wpm":1,"raw_wpm":1,"accuracy":1,"burst_wpm":1,"total_errors":0,"time_mode":15,"test_duration":-1}`,
		"null consistency":  `{"wpm":1,"raw_wpm":1,"accuracy":1,"burst_wpm":1,"total_errors":0,"time_mode":15,"test_duration":15,"consistency":null}`,
		"trailing garbage":  `{"wpm":1} x`,
	}
	for name, body := range bad {
		err := validateRaw(sc.submission, []byte(body))
		require.ErrorIs(t, err, errs.ErrInvalidParameter, name)
	}
}

func TestCredentialsSchema(t *testing.T) {
	t.Parallel()
	sc := mustCompileSchemas([]int{60})

	require.NoError(t, validateRaw(sc.credentials, []byte(`{"username":"bob","password":"pw"}`)))
	require.NoError(t, validateDoc(sc.credentials, map[string]any{"username": "bob", "password": "pw"}))

	err := validateDoc(sc.credentials, map[string]any{"username": "bob"})
	require.ErrorIs(t, err, errs.ErrInvalidParameter)
	require.Contains(t, err.Error(), "password")

	err = validateRaw(sc.credentials, []byte(`{"username":"","password":"pw"}`))
	require.ErrorIs(t, err, errs.ErrInvalidParameter)
}

func TestSchemaDetail(t *testing.T) {
	t.Parallel()
	err := errors.New("validation failed with 'schema://x.json#'\n- at '': missing property 'wpm'\n  - at '/time_mode': value must be one of 15, 60\n")
	require.Equal(t, "at '': missing property 'wpm'; at '/time_mode': value must be one of 15, 60", schemaDetail(err))
	require.Equal(t, "single", schemaDetail(errors.New("single")))
}
