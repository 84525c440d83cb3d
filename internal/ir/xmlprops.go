package ir

import (
	"strings"

	"github.com/beevik/etree"
)

// parseXMLProperties extracts leaf text values from an XMLProperties or
// XMLConnectorDescriptor blob as found in connector stage configurations.
// The blob may be wrapped in a CDATA section and may carry an XML
// declaration. Unparseable input yields an empty map; the caller treats the
// blob as opaque in that case.
func parseXMLProperties(raw string) map[string]string {
	s := raw

	if start := strings.Index(s, "<![CDATA["); start >= 0 {
		s = s[start+len("<![CDATA["):]
		if end := strings.Index(s, "]]>"); end >= 0 {
			s = s[:end]
		}
	}

	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "<") {
		return map[string]string{}
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(s); err != nil {
		return map[string]string{}
	}

	result := make(map[string]string)

	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if text := strings.TrimSpace(el.Text()); text != "" {
			result[el.Tag] = text
		}

		for _, child := range el.ChildElements() {
			walk(child)
		}
	}

	if root := doc.Root(); root != nil {
		walk(root)
	}

	return result
}
