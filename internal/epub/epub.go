// Package epub reads packaged EPUB files: the ZIP container, the OPF package
// document, the spine reading order, and the raw Dublin Core metadata.
//
// The whole container is read into memory on Open so that callers can hold a
// Container for the process lifetime without keeping a file handle open.
package epub

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
)

// ErrInvalidEPub indicates the file is not a readable EPUB container.
var ErrInvalidEPub = errors.New("invalid epub")

const containerPath = "META-INF/container.xml"

// documentMediaTypes are the manifest media types treated as chapter content.
var documentMediaTypes = map[string]bool{
	"application/xhtml+xml": true,
	"text/html":             true,
	"application/html+xml":  true,
}

// Item is one content item inside the container.
type Item struct {
	// Name is the item's href as declared in the manifest.
	Name string

	// MediaType is the manifest media type.
	MediaType string

	// Data is the raw item content.
	Data []byte
}

// IsDocument reports whether the item holds markup content (as opposed to a
// stylesheet, image, or font).
func (i Item) IsDocument() bool {
	return documentMediaTypes[i.MediaType]
}

// Container is an opened EPUB file. It is immutable and safe for concurrent
// readers.
type Container struct {
	path     string
	fields   map[string][]string
	spine    []Item
	docItems []Item
}

// Open reads the EPUB at the given path. The file is fully consumed before
// Open returns; no handle is kept open afterwards.
func Open(fpath string) (*Container, error) {
	zr, err := zip.OpenReader(fpath)
	if err != nil {
		return nil, fmt.Errorf("epub: open %s: %w", fpath, err)
	}
	defer zr.Close()

	files := indexZip(&zr.Reader)

	opfPath, err := locateOPF(&zr.Reader, files)
	if err != nil {
		return nil, err
	}
	opfData, err := readEntry(files, opfPath)
	if err != nil {
		return nil, fmt.Errorf("epub: read OPF %s: %w", opfPath, err)
	}
	pkg, err := parseOPF(opfData)
	if err != nil {
		return nil, err
	}

	c := &Container{
		path:   fpath,
		fields: metadataFields(pkg.Metadata),
	}
	c.loadItems(pkg, path.Dir(opfPath), files)
	return c, nil
}

// Path returns the file path the container was opened from.
func (c *Container) Path() string { return c.path }

// Spine returns the document items in the author-declared reading order.
// The slice is empty when the OPF declares no usable spine.
func (c *Container) Spine() []Item { return c.spine }

// DocumentItems returns every document-type item in manifest storage order,
// the fallback reading order for containers without a usable spine.
func (c *Container) DocumentItems() []Item { return c.docItems }

// Metadata returns the raw values of a Dublin Core field (title, creator,
// identifier, language, description, publisher, ...). A missing field yields
// a nil slice.
func (c *Container) Metadata(field string) []string { return c.fields[field] }

// loadItems reads manifest item content and builds the spine and the
// storage-order document list. Items whose content is missing from the
// archive are skipped rather than failing the whole container.
func (c *Container) loadItems(pkg *opfPackage, opfDir string, files map[string]*zip.File) {
	byID := make(map[string]Item, len(pkg.Manifest.Items))

	for _, mi := range pkg.Manifest.Items {
		if !documentMediaTypes[mi.MediaType] {
			continue
		}
		data, err := readEntry(files, resolveHref(opfDir, mi.Href))
		if err != nil {
			continue
		}
		item := Item{Name: mi.Href, MediaType: mi.MediaType, Data: data}
		byID[mi.ID] = item
		c.docItems = append(c.docItems, item)
	}

	for _, ref := range pkg.Spine.ItemRefs {
		if item, ok := byID[ref.IDRef]; ok {
			c.spine = append(c.spine, item)
		}
	}
}

// indexZip builds a name → entry map over the archive. Entries are indexed
// both exactly and lowercased; some producers disagree with their own
// manifest about case.
func indexZip(zr *zip.Reader) map[string]*zip.File {
	files := make(map[string]*zip.File, len(zr.File)*2)
	for _, f := range zr.File {
		files[f.Name] = f
		lower := strings.ToLower(f.Name)
		if _, ok := files[lower]; !ok {
			files[lower] = f
		}
	}
	return files
}

// locateOPF finds the OPF package document, preferring container.xml and
// falling back to scanning for a .opf entry.
func locateOPF(zr *zip.Reader, files map[string]*zip.File) (string, error) {
	if data, err := readEntry(files, containerPath); err == nil {
		return parseContainerXML(data)
	}
	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".opf") {
			return f.Name, nil
		}
	}
	return "", fmt.Errorf("epub: no OPF package document found: %w", ErrInvalidEPub)
}

// readEntry reads a single archive entry by name, trying the exact name and
// then a lowercase lookup.
func readEntry(files map[string]*zip.File, name string) ([]byte, error) {
	f, ok := files[name]
	if !ok {
		f, ok = files[strings.ToLower(name)]
	}
	if !ok {
		return nil, fmt.Errorf("epub: entry not found: %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// resolveHref joins a manifest href with the OPF directory, decoding any
// percent-escapes the manifest may carry.
func resolveHref(opfDir, href string) string {
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}
	if opfDir == "." || opfDir == "" {
		return href
	}
	return path.Join(opfDir, href)
}
