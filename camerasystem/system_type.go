package camerasystem

import "github.com/pkg/errors"

// SystemType identifies the provenance of a calibration.
type SystemType int

// The known system types.
const (
	UnknownSystem SystemType = iota
	// GenericSystem is a calibration stored in the native parameter list format.
	GenericSystem
	// VIC3DSystem is a calibration read from a VIC-3D cal.xml file.
	VIC3DSystem
	// TextSystem is a calibration read from the legacy one value per line text format.
	TextSystem
	numSystemTypes
)

var systemTypeNames = [numSystemTypes]string{
	"UNKNOWN_SYSTEM",
	"GENERIC_SYSTEM",
	"VIC3D",
	"TEXT_SYSTEM",
}

func (t SystemType) String() string {
	if t < 0 || t >= numSystemTypes {
		return systemTypeNames[UnknownSystem]
	}
	return systemTypeNames[t]
}

// KnownSystemTypes lists every system type except UnknownSystem.
func KnownSystemTypes() []SystemType {
	types := make([]SystemType, 0, numSystemTypes-1)
	for t := GenericSystem; t < numSystemTypes; t++ {
		types = append(types, t)
	}
	return types
}

// SystemTypeFromString is the inverse of SystemType.String.
func SystemTypeFromString(name string) (SystemType, error) {
	for i, n := range systemTypeNames {
		if n == name {
			return SystemType(i), nil
		}
	}
	return UnknownSystem, errors.Wrapf(ErrMalformedInput, "invalid system type %q", name)
}
