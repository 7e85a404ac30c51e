package engine

import (
	"fmt"

	"github.com/tphakala/motionsync-go/internal/motionsync/data"
)

// Known engine names.
const (
	EngineNameCRI = "Live2DCubismMotionSyncEngine_CRI"
)

// Version is a packed engine version: major<<24 | minor<<16 | patch.
type Version uint32

// NewVersion packs a version number.
func NewVersion(major, minor, patch int) Version {
	return Version(uint32(major&0xff)<<24 | uint32(minor&0xff)<<16 | uint32(patch&0xffff))
}

func (v Version) Major() int { return int(v >> 24) }
func (v Version) Minor() int { return int((v >> 16) & 0xff) }
func (v Version) Patch() int { return int(v & 0xffff) }

// Raw returns the packed value.
func (v Version) Raw() uint32 { return uint32(v) }

// String renders "major.minor.patch (raw)".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d (%d)", v.Major(), v.Minor(), v.Patch(), uint32(v))
}

// TypeFromName maps an engine name to its analysis type.
func TypeFromName(name string) data.AnalysisType {
	if name == EngineNameCRI {
		return data.AnalysisTypeCRI
	}
	return data.AnalysisTypeUnknown
}
