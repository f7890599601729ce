package ccdavalidator

// DocumentVersion is a C-CDA release as detected by the structural stage.
type DocumentVersion string

// C-CDA releases.
const (
	// VersionR11 is C-CDA Release 1.1
	VersionR11 DocumentVersion = "R1.1"
	// VersionR20 is C-CDA Release 2.0
	VersionR20 DocumentVersion = "R2.0"
	// VersionR21 is C-CDA Release 2.1
	VersionR21 DocumentVersion = "R2.1"
	// VersionUnknown is reported when no release could be detected
	VersionUnknown DocumentVersion = "UNKNOWN"
)

// String returns the version string.
func (v DocumentVersion) String() string {
	return string(v)
}

// IsValid returns true if this is a known C-CDA release.
func (v DocumentVersion) IsValid() bool {
	switch v {
	case VersionR11, VersionR20, VersionR21:
		return true
	default:
		return false
	}
}

// headerExtensions maps the US Realm Header templateId extension to the
// release that introduced it. R1.1 headers carry no extension.
var headerExtensions = map[string]DocumentVersion{
	"":           VersionR11,
	"2014-06-09": VersionR20,
	"2015-08-01": VersionR21,
}

// VersionForHeaderExtension returns the release identified by a US Realm
// Header templateId extension, or VersionUnknown.
func VersionForHeaderExtension(extension string) DocumentVersion {
	if v, ok := headerExtensions[extension]; ok {
		return v
	}
	return VersionUnknown
}
