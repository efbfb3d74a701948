package camera

import (
	"github.com/pkg/errors"
)

// IntrinsicParam indexes the intrinsic parameter array of a camera.
type IntrinsicParam int

// The intrinsic parameters in storage order.
const (
	CX IntrinsicParam = iota
	CY
	FX
	FY
	FS
	K1
	K2
	K3
	K4
	K5
	K6
	P1
	P2
	S1
	S2
	S3
	S4
	T1
	T2
	// NumIntrinsicParams is the size of the intrinsic array.
	NumIntrinsicParams int = iota
)

var intrinsicParamNames = [NumIntrinsicParams]string{
	"CX", "CY", "FX", "FY", "FS",
	"K1", "K2", "K3", "K4", "K5", "K6",
	"P1", "P2",
	"S1", "S2", "S3", "S4",
	"T1", "T2",
}

// AllIntrinsicParams lists every intrinsic parameter in storage order.
func AllIntrinsicParams() []IntrinsicParam {
	params := make([]IntrinsicParam, NumIntrinsicParams)
	for i := range params {
		params[i] = IntrinsicParam(i)
	}
	return params
}

// Valid reports whether p is inside the enumeration.
func (p IntrinsicParam) Valid() bool {
	return p >= 0 && int(p) < NumIntrinsicParams
}

// String returns the name used for the parameter in calibration files.
func (p IntrinsicParam) String() string {
	if !p.Valid() {
		return "UNKNOWN_INTRINSIC"
	}
	return intrinsicParamNames[p]
}

// IntrinsicParamFromString is the inverse of IntrinsicParam.String.
func IntrinsicParamFromString(name string) (IntrinsicParam, error) {
	for i, n := range intrinsicParamNames {
		if n == name {
			return IntrinsicParam(i), nil
		}
	}
	return 0, errors.Errorf("unknown intrinsic parameter %q", name)
}

// Intrinsics holds one value per IntrinsicParam. Unset values are zero.
type Intrinsics [NumIntrinsicParams]float64

// Value returns the value of p.
func (in *Intrinsics) Value(p IntrinsicParam) (float64, error) {
	if !p.Valid() {
		return 0, errors.Errorf("intrinsic index %d out of range [0, %d)", int(p), NumIntrinsicParams)
	}
	return in[p], nil
}

// Set assigns the value of p.
func (in *Intrinsics) Set(p IntrinsicParam, v float64) error {
	if !p.Valid() {
		return errors.Errorf("intrinsic index %d out of range [0, %d)", int(p), NumIntrinsicParams)
	}
	in[p] = v
	return nil
}
