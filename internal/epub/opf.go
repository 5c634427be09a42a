package epub

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// containerXML models META-INF/container.xml, which locates the OPF file.
type containerXML struct {
	XMLName   xml.Name  `xml:"container"`
	RootFiles []rootRef `xml:"rootfiles>rootfile"`
}

type rootRef struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// opfPackage is the root <package> element of the OPF file.
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Version  string      `xml:"version,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
}

// opfMetadata holds the Dublin Core elements the library cares about.
type opfMetadata struct {
	Titles       []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creators     []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Identifiers  []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ identifier"`
	Languages    []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ language"`
	Descriptions []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ description"`
	Publishers   []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ publisher"`
	Dates        []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ date"`
	Subjects     []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ subject"`
}

type opfDCElement struct {
	Value string `xml:",chardata"`
}

type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

type opfManifestItem struct {
	ID        string `xml:"id,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

type opfSpine struct {
	ItemRefs []opfSpineItemRef `xml:"itemref"`
}

type opfSpineItemRef struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr"`
}

// parseOPF decodes the OPF package document.
func parseOPF(data []byte) (*opfPackage, error) {
	var pkg opfPackage
	if err := xml.Unmarshal(stripBOM(data), &pkg); err != nil {
		return nil, fmt.Errorf("epub: parse OPF: %w", err)
	}
	return &pkg, nil
}

// parseContainerXML returns the full-path of the first OPF rootfile entry.
func parseContainerXML(data []byte) (string, error) {
	var c containerXML
	if err := xml.Unmarshal(stripBOM(data), &c); err != nil {
		return "", fmt.Errorf("epub: parse container.xml: %w", err)
	}
	for _, rf := range c.RootFiles {
		if rf.FullPath != "" {
			return rf.FullPath, nil
		}
	}
	return "", fmt.Errorf("epub: container.xml has no rootfile entries: %w", ErrInvalidEPub)
}

// metadataFields flattens the parsed DC elements into a field → values map
// keyed by the unprefixed Dublin Core names (title, creator, ...).
func metadataFields(md opfMetadata) map[string][]string {
	fields := make(map[string][]string, 8)
	add := func(key string, elems []opfDCElement) {
		for _, e := range elems {
			if v := strings.TrimSpace(e.Value); v != "" {
				fields[key] = append(fields[key], v)
			}
		}
	}
	add("title", md.Titles)
	add("creator", md.Creators)
	add("identifier", md.Identifiers)
	add("language", md.Languages)
	add("description", md.Descriptions)
	add("publisher", md.Publishers)
	add("date", md.Dates)
	add("subject", md.Subjects)
	return fields
}

// stripBOM removes a leading UTF-8 byte order mark if present.
func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}
