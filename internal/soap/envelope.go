package soap

import "encoding/xml"

type requestEnvelope struct {
	XMLName xml.Name    `xml:"soap:Envelope"`
	SoapNS  string      `xml:"xmlns:soap,attr"`
	Body    requestBody `xml:"soap:Body"`
}

type requestBody struct {
	Operation operationElement
}

// operationElement renders <operation xmlns="ns"><arg>value</arg>...</operation>
// keeping args in the order given.
type operationElement struct {
	name string
	ns   string
	args []Arg
}

func (o operationElement) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	start := xml.StartElement{
		Name: xml.Name{Local: o.name},
		Attr: []xml.Attr{{Name: xml.Name{Local: "xmlns"}, Value: o.ns}},
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, a := range o.args {
		if err := e.EncodeElement(a.Value, xml.StartElement{Name: xml.Name{Local: a.Name}}); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

type responseEnvelope struct {
	XMLName xml.Name     `xml:"Envelope"`
	Body    responseBody `xml:"Body"`
}

type responseBody struct {
	Fault     *faultBody          `xml:"Fault"`
	Responses []operationResponse `xml:",any"`
}

type faultBody struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

type operationResponse struct {
	XMLName xml.Name
	Fields  []resultField `xml:",any"`
}

// resultField keeps both the decoded text and the raw inner XML so a result
// returned as escaped text and one returned as literal child elements end up
// as the same string.
type resultField struct {
	XMLName  xml.Name
	Text     string    `xml:",chardata"`
	Inner    string    `xml:",innerxml"`
	Children []element `xml:",any"`
}

type element struct {
	XMLName xml.Name
}

func (f resultField) value() string {
	if len(f.Children) > 0 {
		return f.Inner
	}
	return f.Text
}
