package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_FieldsAndSources(t *testing.T) {
	tbl := []struct {
		name    string
		opts    Options
		fields  []Field
		sources []DocSource
	}{
		{"defaults", DefaultOptions(), allFields, nil},
		{"markers only", Options{SearchMarker: true}, []Field{FieldTitle, FieldDescription}, []DocSource{DocSourceMarker}},
		{"weather only", Options{SearchTourWeather: true}, []Field{FieldWeather}, []DocSource{DocSourceTour}},
		{"tour and waypoint", Options{SearchTour: true, SearchWaypoint: true},
			[]Field{FieldTitle, FieldDescription}, []DocSource{DocSourceTour, DocSourceWaypoint}},
		{"nothing", Options{}, []Field{}, []DocSource{}},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fields, tt.opts.Fields())
			assert.Equal(t, tt.sources, tt.opts.Sources())
		})
	}
}

func TestOptions_Fingerprint(t *testing.T) {
	opts := DefaultOptions()
	fp := opts.fingerprint()

	opts.ShowDate = true
	opts.ShowDocID = true
	assert.Equal(t, fp, opts.fingerprint(), "display toggles ignored")

	opts.SortDateAscending = true
	assert.NotEqual(t, fp, opts.fingerprint())
}

func TestOptionsStore_LoadSave(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "conf", "search.yml")
	s := NewOptionsStore(fname)

	state, err := s.Load()
	require.NoError(t, err, "missing file is not an error")
	assert.Equal(t, State{Options: DefaultOptions()}, state)

	state.SearchText = "alpine"
	state.Options.SearchAll = false
	state.Options.SearchMarker = true
	state.Options.ShowItemNumber = true
	require.NoError(t, s.Save(state))

	loaded, err := NewOptionsStore(fname).Load()
	require.NoError(t, err)
	assert.Equal(t, state, loaded)

	reset, err := s.Reset()
	require.NoError(t, err)
	assert.Equal(t, "alpine", reset.SearchText, "search text kept on reset")
	assert.Equal(t, DefaultOptions(), reset.Options)

	loaded, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, reset, loaded)
}

func TestOptionsStore_Broken(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "search.yml")
	require.NoError(t, os.WriteFile(fname, []byte("options: [not a map"), 0o600))

	state, err := NewOptionsStore(fname).Load()
	assert.Error(t, err)
	assert.Equal(t, DefaultOptions(), state.Options)

	state, err = NewOptionsStore(fname).Reset()
	assert.NoError(t, err, "reset overwrites broken file")
	assert.Equal(t, DefaultOptions(), state.Options)
}

func TestOptionsStore_Memory(t *testing.T) {
	s := NewOptionsStore("")
	require.NoError(t, s.Save(State{SearchText: "x"}))
	state, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, State{Options: DefaultOptions()}, state)
}
