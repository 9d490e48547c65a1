// Package assets parses the XML bodies carried by @ASSET@ commands.
package assets

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/masonhieb/shdredge/internal/domain"
	"github.com/masonhieb/shdredge/internal/ports"
)

// XMLParser reads the root element of an asset body and lifts its identity
// attributes. The body is kept verbatim so sinks can store the original
// document.
type XMLParser struct{}

func NewXMLParser() *XMLParser { return &XMLParser{} }

func (p *XMLParser) Parse(body string) (*domain.AssetDocument, error) {
	dec := xml.NewDecoder(strings.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("asset xml: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		doc := &domain.AssetDocument{
			Root: start.Name.Local,
			Raw:  body,
		}
		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "assetId":
				doc.AssetID = attr.Value
			case "type":
				doc.Type = attr.Value
			}
		}

		// Walk the rest of the document so malformed XML is rejected
		// rather than silently truncated.
		if err := dec.Skip(); err != nil {
			return nil, fmt.Errorf("asset xml: %w", err)
		}
		return doc, nil
	}
}

var _ ports.AssetParser = (*XMLParser)(nil)
