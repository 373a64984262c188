package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRecords(t *testing.T) {
	input := "Instrument;L/S;Qty;Net P&L;\n" +
		"ES SEP25;Long;2;\"-$ 200,00\";\n" +
		"NQ DEC25;Short;1;\"$ 150,00\"\n"

	records, err := ReadRecords(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "ES SEP25", records[0]["Instrument"])
	assert.Equal(t, "-$ 200,00", records[0]["Net P&L"])
	assert.Equal(t, "NQ DEC25", records[1]["Instrument"])
	assert.Equal(t, "Short", records[1]["L/S"])
}

func TestReadRecords_SkipsEmptyLines(t *testing.T) {
	input := "Instrument;L/S\n" +
		"ES SEP25;Long\n" +
		";\n" +
		"\n" +
		"NQ DEC25;Short\n"

	records, err := ReadRecords(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestReadRecords_RaggedRows(t *testing.T) {
	input := "Instrument;L/S;Qty\n" +
		"ES SEP25;Long\n" + // short row
		"NQ DEC25;Short;1;extra;cells\n" // long row

	records, err := ReadRecords(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "", records[0]["Qty"])
	assert.Equal(t, "1", records[1]["Qty"])
}

func TestReadRecords_InputFormatErrors(t *testing.T) {
	// empty input
	_, err := ReadRecords(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrInputFormat)

	// single-column header means the delimiter is wrong
	_, err = ReadRecords(strings.NewReader("Instrument,Side,Qty\nES,Long,2\n"))
	assert.ErrorIs(t, err, ErrInputFormat)
}
