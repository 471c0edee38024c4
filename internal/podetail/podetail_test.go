package podetail

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSingleItem(t *testing.T) {
	blob := "PO Number: 4501\n\n- Bolt\n  Item Number: B-1\n  Bin Location: A2"

	record, err := Parse(blob)
	require.NoError(t, err)
	require.Equal(t, Record{
		PONumber: "4501",
		Items: []LineItem{
			{Name: "Bolt", ItemNumber: "B-1", BinLocation: "A2"},
		},
	}, record)
}

func TestParseMultipleItemsPreservesOrderAndDuplicates(t *testing.T) {
	blob := "PO Number: 88\n\n" +
		"- Washer\n  Item Number: W-9\n  Bin Location: C4\n" +
		"- Bolt\n  Item Number: B-1\n  Bin Location: A2\n" +
		"- Washer\n  Item Number: W-9\n  Bin Location: C4"

	record, err := Parse(blob)
	require.NoError(t, err)
	require.Equal(t, "88", record.PONumber)
	require.Equal(t, []LineItem{
		{Name: "Washer", ItemNumber: "W-9", BinLocation: "C4"},
		{Name: "Bolt", ItemNumber: "B-1", BinLocation: "A2"},
		{Name: "Washer", ItemNumber: "W-9", BinLocation: "C4"},
	}, record.Items)
}

func TestParseNoItems(t *testing.T) {
	record, err := Parse("PO Number: 4501\n")
	require.NoError(t, err)
	require.Equal(t, "4501", record.PONumber)
	require.Empty(t, record.Items)
}

func TestParseRejectsMalformedBlobs(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{name: "empty", blob: ""},
		{name: "missing header", blob: "- Bolt\n  Item Number: B-1\n  Bin Location: A2"},
		{name: "dangling partial item", blob: "PO Number: 4501\n\n- Bolt\n  Item Number: B-1"},
		{name: "name line without dash", blob: "PO Number: 4501\n\nBolt\n  Item Number: B-1\n  Bin Location: A2"},
		{name: "swapped item lines", blob: "PO Number: 4501\n\n- Bolt\n  Bin Location: A2\n  Item Number: B-1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.blob)
			require.ErrorIs(t, err, ErrMalformedBlob)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	record := Record{
		PONumber: "4501",
		Items: []LineItem{
			{Name: "Bolt", ItemNumber: "B-1", BinLocation: "A2"},
			{Name: "Hex Nut", ItemNumber: "N-17", BinLocation: "B6"},
		},
	}

	parsed, err := Parse(record.String())
	require.NoError(t, err)
	require.Equal(t, record, parsed)
}

func TestTableListsEveryItem(t *testing.T) {
	record := Record{
		PONumber: "77",
		Items: []LineItem{
			{Name: "Bolt", ItemNumber: "B-1", BinLocation: "A2"},
			{Name: "Washer", ItemNumber: "W-9", BinLocation: "C4"},
		},
	}

	table := record.Table()
	require.Contains(t, table, "PO Number: 77")
	require.Contains(t, table, "Bolt")
	require.Contains(t, table, "B-1")
	require.Contains(t, table, "W-9")
	require.Contains(t, table, "Bin Location")
}
