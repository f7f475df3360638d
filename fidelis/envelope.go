package fidelis

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alovak/fidelis-loyalty/fidelis/models"
)

const (
	// TableSummary carries the single status/summary row of a response.
	TableSummary = "Table"
	// TablePrimary carries the result rows, when there are any.
	TablePrimary = "Table1"
)

// Envelope is a parsed result payload: table name to rows, in document order.
type Envelope map[string][]models.Record

// Summary returns the first row of TableSummary.
func (e Envelope) Summary() (models.Record, bool) {
	rows := e[TableSummary]
	if len(rows) == 0 {
		return nil, false
	}
	return rows[0], true
}

// Rows returns the rows of table; a table that is not present has no rows.
func (e Envelope) Rows(table string) []models.Record {
	return e[table]
}

// ParseEnvelope decodes the DataSet XML Fidelis embeds in a result field.
// An empty payload is an empty envelope.
func ParseEnvelope(payload string) (Envelope, error) {
	env := Envelope{}
	if strings.TrimSpace(payload) == "" {
		return env, nil
	}

	d := xml.NewDecoder(strings.NewReader(payload))

	root, err := nextStart(d)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("no root element")
		}
		return nil, err
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			// DataSets written with an inline schema carry it as the first child.
			if t.Name.Local == "schema" {
				if err := d.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			rec, err := readRecord(d)
			if err != nil {
				return nil, err
			}
			env[t.Name.Local] = append(env[t.Name.Local], rec)
		case xml.EndElement:
			if t.Name.Local != root.Name.Local {
				return nil, fmt.Errorf("unexpected </%s>", t.Name.Local)
			}
			if err := trailing(d); err != nil {
				return nil, err
			}
			return env, nil
		}
	}
}

func nextStart(d *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := d.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

// readRecord reads column elements until the record's end tag.
func readRecord(d *xml.Decoder) (models.Record, error) {
	rec := models.Record{}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			text, err := readText(d)
			if err != nil {
				return nil, err
			}
			rec[t.Name.Local] = strings.TrimSpace(text)
		case xml.EndElement:
			return rec, nil
		}
	}
}

// readText returns all character data up to the matching end tag, flattening
// any nested elements.
func readText(d *xml.Decoder) (string, error) {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return b.String(), nil
}

// trailing rejects a second root element after the first one closed.
func trailing(d *xml.Decoder) error {
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return fmt.Errorf("unexpected second root element <%s>", se.Name.Local)
		}
	}
}
