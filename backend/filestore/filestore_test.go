package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dekarrin/cuttle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Open(t *testing.T) {
	t.Run("new file is created empty", func(t *testing.T) {
		assert := assert.New(t)
		file := filepath.Join(t.TempDir(), "data.rz")

		s, err := Open(file)
		require.NoError(t, err)
		defer s.Close()

		assert.FileExists(file)

		loaded, err := s.Load(context.Background())
		assert.NoError(err)
		assert.Empty(loaded)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := Open("")
		assert.ErrorIs(t, err, cuttle.ErrBadArgument)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "nope", "data.rz"))
		assert.Error(t, err)
	})
}

func Test_Store_SaveLoad(t *testing.T) {
	assert := assert.New(t)
	file := filepath.Join(t.TempDir(), "data.rz")
	ctx := context.Background()

	s, err := Open(file)
	require.NoError(t, err)

	input := map[string][]cuttle.Record{
		"posts": {
			{"id": 1, "title": "A"},
			{"id": 2, "title": "B", "tags": []any{"x", "y"}},
		},
		"authors": {},
	}

	require.NoError(t, s.Save(ctx, input))
	assert.NoFileExists(file + ".bak")
	require.NoError(t, s.Close())

	reopened, err := Open(file)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx)
	if !assert.NoError(err) {
		return
	}
	assert.Equal(input, loaded)

	// a second save replaces the first
	require.NoError(t, reopened.Save(ctx, map[string][]cuttle.Record{"posts": {{"id": 3}}}))
	loaded, err = reopened.Load(ctx)
	assert.NoError(err)
	assert.Equal(map[string][]cuttle.Record{"posts": {{"id": 3}}}, loaded)
}

func Test_Store_Load_corrupt(t *testing.T) {
	file := filepath.Join(t.TempDir(), "data.rz")
	require.NoError(t, os.WriteFile(file, []byte{0x00, 0x01, 0x02}, 0644))

	s, err := Open(file)
	require.NoError(t, err)

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, cuttle.ErrDecodingFailure)
}

func Test_Store_Save_badRecord(t *testing.T) {
	assert := assert.New(t)
	file := filepath.Join(t.TempDir(), "data.rz")
	ctx := context.Background()

	s, err := Open(file)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, map[string][]cuttle.Record{"posts": {{"id": 1}}}))

	err = s.Save(ctx, map[string][]cuttle.Record{"posts": {{"ch": make(chan int)}}})
	assert.ErrorIs(err, cuttle.ErrBadArgument)

	// the last good snapshot is untouched
	loaded, err := s.Load(ctx)
	assert.NoError(err)
	assert.Equal(map[string][]cuttle.Record{"posts": {{"id": 1}}}, loaded)
}

func Test_Store_closed(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s, err := Open(filepath.Join(t.TempDir(), "data.rz"))
	require.NoError(t, err)

	assert.NoError(s.Close())
	assert.NoError(s.Close())

	_, err = s.Load(ctx)
	assert.Error(err)
	assert.Error(s.Save(ctx, nil))
}

func Test_Store_canceledContext(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "data.rz"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Save(ctx, nil), context.Canceled)
}

func Test_createFileBackup(t *testing.T) {
	assert := assert.New(t)
	file := filepath.Join(t.TempDir(), "data.rz")
	require.NoError(t, os.WriteFile(file, []byte("dave"), 0644))

	bu, err := createFileBackup(file)
	if !assert.NoError(err) {
		return
	}
	assert.Equal(file+".bak", bu)

	data, err := os.ReadFile(bu)
	assert.NoError(err)
	assert.Equal("dave", string(data))
}
