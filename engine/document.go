package engine

import (
	"bytes"
	"io"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	ccdavalidator "github.com/gofhir/ccdavalidator"
	"github.com/gofhir/ccdavalidator/pkg/logger"
	"github.com/gofhir/ccdavalidator/pool"
)

// Document is a submitted document after acquisition.
type Document struct {
	// Raw is the document exactly as submitted
	Raw []byte

	// Text is the document decoded to UTF-8 without a byte-order mark
	Text string

	// BOM names the encoding announced by a byte-order mark, or is empty
	BOM string
}

var byteOrderMarks = []struct {
	mark     []byte
	encoding string
}{
	{[]byte{0xEF, 0xBB, 0xBF}, "UTF-8"},
	{[]byte{0xFF, 0xFE}, "UTF-16LE"},
	{[]byte{0xFE, 0xFF}, "UTF-16BE"},
}

// DetectBOM returns the encoding announced by a leading byte-order mark.
func DetectBOM(raw []byte) (string, bool) {
	for _, bom := range byteOrderMarks {
		if bytes.HasPrefix(raw, bom.mark) {
			return bom.encoding, true
		}
	}
	return "", false
}

// ReadDocument reads r fully and decodes it to UTF-8 text. A byte-order mark
// selects the source encoding and is removed; without one the content is
// read as UTF-8. Failures are classified as I/O errors.
func ReadDocument(r io.Reader) (*Document, error) {
	if r == nil {
		return nil, ccdavalidator.IOError(ccdavalidator.ErrNoDocument)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, ccdavalidator.IOError(pkgerrors.Wrap(err, "error getting C-CDA contents from provided file"))
	}

	doc := &Document{Raw: raw}
	doc.BOM, _ = DetectBOM(raw)

	buf := pool.AcquireBuffer()
	defer pool.ReleaseBuffer(buf)

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	if _, err := buf.ReadFrom(transform.NewReader(bytes.NewReader(raw), decoder)); err != nil {
		return nil, ccdavalidator.IOError(pkgerrors.Wrap(err, "error decoding C-CDA contents"))
	}
	doc.Text = buf.String()

	return doc, nil
}

// acquire reads and closes the request's document stream. The stream is
// closed exactly once whether or not reading succeeds; a close failure is
// logged and does not fail the request.
func acquire(rc io.ReadCloser, log *logger.Logger) (*Document, error) {
	if rc == nil {
		return nil, ccdavalidator.IOError(ccdavalidator.ErrNoDocument)
	}
	defer func() {
		if err := rc.Close(); err != nil {
			log.Warn("Failed to close the C-CDA file stream: %v", err)
		}
	}()

	doc, err := ReadDocument(rc)
	if err != nil {
		return nil, err
	}
	if doc.BOM != "" {
		log.Warn("The C-CDA file has a BOM which has been removed - encoding w/o BOM: %s", doc.BOM)
	}
	return doc, nil
}
