package datasource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mintColumns = []string{
	"total_mints", "top_verifier", "verifier_count", "top_ref", "ref_count",
	"top_recipient", "recipient_count", "start_time", "end_time",
}

func testWindow() (time.Time, time.Time) {
	end := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return end.Add(-24 * time.Hour), end
}

func TestTopMintGroup_ReturnsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	start, end := testWindow()

	rows := sqlmock.NewRows(mintColumns).
		AddRow("42", "0xverifier", "7", "0xref", "7", "0xrecipient", "7", "2024-04-30 12:00:00 UTC", "2024-05-01 12:00:00 UTC")
	mock.ExpectQuery("FROM art_mint_events, time_range").
		WithArgs(start.Unix(), end.Unix()).
		WillReturnRows(rows)

	window, err := ds.TopMintGroup(context.Background(), start, end)
	require.NoError(t, err)
	require.NotNil(t, window)

	assert.Equal(t, "42", window.TotalMints)
	assert.Equal(t, "0xverifier", window.TopVerifier)
	assert.Equal(t, "7", window.VerifierCount)
	assert.Equal(t, "0xref", window.TopRef)
	assert.Equal(t, "7", window.RefCount)
	assert.Equal(t, "0xrecipient", window.TopRecipient)
	assert.Equal(t, "7", window.RecipientCount)
	assert.Equal(t, "2024-04-30 12:00:00 UTC", window.WindowStart)
	assert.Equal(t, "2024-05-01 12:00:00 UTC", window.WindowEnd)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopMintGroup_NoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	start, end := testWindow()

	mock.ExpectQuery("FROM art_mint_events, time_range").
		WithArgs(start.Unix(), end.Unix()).
		WillReturnRows(sqlmock.NewRows(mintColumns))

	window, err := ds.TopMintGroup(context.Background(), start, end)
	assert.NoError(t, err)
	assert.Nil(t, window)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopMintGroup_NullColumnsUseDefaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	start, end := testWindow()

	rows := sqlmock.NewRows(mintColumns).
		AddRow("3", nil, "1", nil, "1", "0xrecipient", "1", nil, nil)
	mock.ExpectQuery("FROM art_mint_events, time_range").
		WithArgs(start.Unix(), end.Unix()).
		WillReturnRows(rows)

	window, err := ds.TopMintGroup(context.Background(), start, end)
	require.NoError(t, err)
	require.NotNil(t, window)

	assert.Equal(t, "3", window.TotalMints)
	assert.Equal(t, "N/A", window.TopVerifier)
	assert.Equal(t, "N/A", window.TopRef)
	assert.Equal(t, "0xrecipient", window.TopRecipient)
	assert.Equal(t, "", window.WindowStart)
	assert.Equal(t, "", window.WindowEnd)
}

func TestTopMintGroup_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	start, end := testWindow()

	mock.ExpectQuery("FROM art_mint_events, time_range").
		WillReturnError(errors.New(`relation "art_mint_events" does not exist`))

	window, err := ds.TopMintGroup(context.Background(), start, end)
	assert.Nil(t, window)
	assert.EqualError(t, err, `query mint events: relation "art_mint_events" does not exist`)
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.EqualError(t, err, "postgres connection string is required")
}

func TestDatasource_CloseNil(t *testing.T) {
	var ds *Datasource
	assert.NoError(t, ds.Close())
}
