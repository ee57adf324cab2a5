package caldav

import (
	"encoding/xml"
	"strings"
)

// The structs below decode a WebDAV multistatus response leniently: tags
// carry only the element local name, so encoding/xml matches them regardless
// of which namespace prefix (or none) the server used for "DAV:" or
// "urn:ietf:params:xml:ns:caldav". This is the load-bearing trick that lets
// non-conforming servers (Feishu in particular sends inconsistent namespace
// prefixes across responses) decode the same way a strict client would.
type multistatusXML struct {
	XMLName   xml.Name      `xml:"multistatus"`
	Responses []responseXML `xml:"response"`
}

type responseXML struct {
	Href      string        `xml:"href"`
	Propstats []propstatXML `xml:"propstat"`
}

type propstatXML struct {
	Status string  `xml:"status"`
	Prop   propXML `xml:"prop"`
}

type propXML struct {
	ResourceType resourceTypeXML `xml:"resourcetype"`
	DisplayName  string          `xml:"displayname"`
	CalendarData string          `xml:"calendar-data"`
	GetETag      string          `xml:"getetag"`
}

type resourceTypeXML struct {
	Calendar   *struct{} `xml:"calendar"`
	Collection *struct{} `xml:"collection"`
}

func (r resourceTypeXML) isCalendar() bool {
	return r.Calendar != nil
}

func parseMultistatus(body []byte) (*multistatusXML, error) {
	var ms multistatusXML
	if err := xml.Unmarshal(body, &ms); err != nil {
		return nil, err
	}
	return &ms, nil
}

// okProp returns the prop block of the first 2xx propstat in resp, or the
// zero value if none is present. Most servers only ever send one propstat
// per response; when they send more (e.g. a 404 propstat alongside a 200
// one for partially-supported properties) the first success wins.
func (r responseXML) okProp() (propXML, bool) {
	for _, ps := range r.Propstats {
		fields := strings.Fields(ps.Status)
		if len(fields) >= 2 && strings.HasPrefix(fields[1], "2") {
			return ps.Prop, true
		}
	}
	return propXML{}, false
}
