package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dekarrin/cuttle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Store_SaveLoad(t *testing.T) {
	assert := assert.New(t)
	file := filepath.Join(t.TempDir(), "cuttle.db")
	ctx := context.Background()

	st, err := Open(file)
	require.NoError(t, err)

	loaded, err := st.Load(ctx)
	assert.NoError(err)
	assert.Empty(loaded)

	input := map[string][]cuttle.Record{
		"posts": {
			{"id": 2, "title": "B"},
			{"id": 1, "title": "A", "meta": map[string]any{"draft": true}},
		},
		"authors": {},
	}
	require.NoError(t, st.Save(ctx, input))
	require.NoError(t, st.Close())

	reopened, err := Open(file)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err = reopened.Load(ctx)
	if !assert.NoError(err) {
		return
	}
	assert.Equal(input, loaded)

	require.NoError(t, reopened.Save(ctx, map[string][]cuttle.Record{"posts": {{"id": 3}}}))
	loaded, err = reopened.Load(ctx)
	assert.NoError(err)
	assert.Equal(map[string][]cuttle.Record{"posts": {{"id": 3}}}, loaded)
}

func Test_Store_Save_badRecord(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	st, err := Open(filepath.Join(t.TempDir(), "cuttle.db"))
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Save(ctx, map[string][]cuttle.Record{"posts": {{"id": 1}}}))

	err = st.Save(ctx, map[string][]cuttle.Record{"posts": {{"ch": make(chan int)}}})
	assert.ErrorIs(err, cuttle.ErrBadArgument)

	loaded, err := st.Load(ctx)
	assert.NoError(err)
	assert.Equal(map[string][]cuttle.Record{"posts": {{"id": 1}}}, loaded)
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	driver, dbMock, err := sqlmock.New()
	require.NoError(t, err)

	dbMock.ExpectExec("CREATE TABLE IF NOT EXISTS collections").WillReturnResult(sqlmock.NewResult(0, 0))
	dbMock.ExpectExec("CREATE TABLE IF NOT EXISTS records").WillReturnResult(sqlmock.NewResult(0, 0))

	st, err := New(driver)
	require.NoError(t, err)
	return st, dbMock
}

func Test_Store_Save_rollsBackOnFailure(t *testing.T) {
	assert := assert.New(t)
	st, dbMock := newMockStore(t)

	dbMock.ExpectBegin()
	dbMock.ExpectExec("DELETE FROM records").WillReturnResult(sqlmock.NewResult(0, 4))
	dbMock.ExpectExec("DELETE FROM collections").WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectExec("INSERT INTO collections").WithArgs("posts").WillReturnError(errors.New("disk on fire"))
	dbMock.ExpectRollback()

	err := st.Save(context.Background(), map[string][]cuttle.Record{"posts": {{"id": 1}}})

	assert.ErrorIs(err, cuttle.ErrDB)
	assert.ErrorContains(err, "disk on fire")
	assert.NoError(dbMock.ExpectationsWereMet())
}

func Test_Store_Load_queryError(t *testing.T) {
	assert := assert.New(t)
	st, dbMock := newMockStore(t)

	dbMock.ExpectQuery("SELECT name FROM collections").WillReturnError(errors.New("locked"))

	_, err := st.Load(context.Background())

	assert.ErrorIs(err, cuttle.ErrDB)
	assert.NoError(dbMock.ExpectationsWereMet())
}

func Test_Store_Load_badData(t *testing.T) {
	assert := assert.New(t)
	st, dbMock := newMockStore(t)

	dbMock.ExpectQuery("SELECT name FROM collections").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("posts"))
	dbMock.ExpectQuery("SELECT collection, data FROM records").
		WillReturnRows(sqlmock.NewRows([]string{"collection", "data"}).AddRow("posts", "not json"))

	_, err := st.Load(context.Background())

	assert.ErrorIs(err, cuttle.ErrDecodingFailure)
	assert.NoError(dbMock.ExpectationsWereMet())
}

func Test_Store_Close(t *testing.T) {
	st, dbMock := newMockStore(t)
	dbMock.ExpectClose()

	assert.NoError(t, st.Close())
	assert.NoError(t, dbMock.ExpectationsWereMet())
}
