package fidelis

import (
	"testing"

	"github.com/alovak/fidelis-loyalty/fidelis/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelope_SummaryAndRows(t *testing.T) {
	payload := `<NewDataSet>
  <Table><PgCount>2</PgCount><RowCount>3</RowCount></Table>
  <Table1><TransID>1</TransID><CardNumber>1234567890123456</CardNumber><Amount>10.00</Amount></Table1>
  <Table1><TransID>2</TransID><CardNumber>1234567890123456</CardNumber><Amount> 5.50 </Amount></Table1>
</NewDataSet>`

	env, err := ParseEnvelope(payload)
	require.NoError(t, err)

	want := Envelope{
		"Table": {
			{"PgCount": "2", "RowCount": "3"},
		},
		"Table1": {
			{"TransID": "1", "CardNumber": "1234567890123456", "Amount": "10.00"},
			{"TransID": "2", "CardNumber": "1234567890123456", "Amount": "5.50"},
		},
	}
	if diff := cmp.Diff(want, env); diff != "" {
		t.Fatalf("envelope mismatch (-want +got):\n%s", diff)
	}

	summary, ok := env.Summary()
	require.True(t, ok)
	require.Equal(t, "2", summary["PgCount"])
}

func TestParseEnvelope_OnlySummaryMeansNoRows(t *testing.T) {
	env, err := ParseEnvelope(`<NewDataSet><Table><ReturnCode>000</ReturnCode></Table></NewDataSet>`)
	require.NoError(t, err)

	require.Empty(t, env.Rows(TablePrimary))
	summary, ok := env.Summary()
	require.True(t, ok)
	require.Equal(t, "000", summary["ReturnCode"])
}

func TestParseEnvelope_EmptyPayload(t *testing.T) {
	for _, payload := range []string{"", "   \n"} {
		env, err := ParseEnvelope(payload)
		require.NoError(t, err)
		require.Empty(t, env)
		_, ok := env.Summary()
		require.False(t, ok)
	}
}

func TestParseEnvelope_EmptyDataSet(t *testing.T) {
	env, err := ParseEnvelope(`<?xml version="1.0" standalone="yes"?><NewDataSet />`)
	require.NoError(t, err)
	require.Empty(t, env)
}

func TestParseEnvelope_SkipsInlineSchema(t *testing.T) {
	payload := `<NewDataSet>
  <xs:schema id="NewDataSet" xmlns:xs="http://www.w3.org/2001/XMLSchema">
    <xs:element name="Table"><xs:complexType><xs:sequence><xs:element name="Column1" type="xs:string"/></xs:sequence></xs:complexType></xs:element>
  </xs:schema>
  <Table><Column1>0</Column1><Column2>42.50</Column2></Table>
</NewDataSet>`

	env, err := ParseEnvelope(payload)
	require.NoError(t, err)
	require.Equal(t, []models.Record{{"Column1": "0", "Column2": "42.50"}}, env.Rows(TableSummary))
	require.NotContains(t, env, "schema")
}

func TestParseEnvelope_FlattensNestedColumns(t *testing.T) {
	env, err := ParseEnvelope(`<NewDataSet><Table><Name><First>Ana</First></Name><Email/></Table></NewDataSet>`)
	require.NoError(t, err)
	require.Equal(t, models.Record{"Name": "Ana", "Email": ""}, env.Rows(TableSummary)[0])
}

func TestParseEnvelope_Malformed(t *testing.T) {
	cases := []string{
		`<NewDataSet><Table><ReturnCode>000</ReturnCode></Table>`,
		`<NewDataSet><Table><ReturnCode>000</Table></NewDataSet>`,
		`<NewDataSet></NewDataSet><Other/>`,
		`not xml at all`,
	}
	for _, payload := range cases {
		_, err := ParseEnvelope(payload)
		require.Error(t, err, "payload %q", payload)
	}
}
