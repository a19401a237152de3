package geospatial

import (
	"errors"
	"iter"
	"math"

	"github.com/paulmach/orb"
)

// WGS-84 ellipsoid.
const (
	wgs84A = 6378137.0
	wgs84B = 6356752.314245
	wgs84F = 1 / 298.257223563

	vincentyMaxIterations = 200
	vincentyEpsilon       = 1e-12
)

// ErrVincentyNoConvergence is returned for near-antipodal pairs where the
// inverse formula oscillates.
var ErrVincentyNoConvergence = errors.New("vincenty: failed to converge")

// Vincenty returns the ellipsoidal distance in meters between two points
// using the inverse Vincenty formula.
func Vincenty(p1, p2 orb.Point) (float64, error) {
	L := toRad(p2.Lon() - p1.Lon())
	u1 := math.Atan((1 - wgs84F) * math.Tan(toRad(p1.Lat())))
	u2 := math.Atan((1 - wgs84F) * math.Tan(toRad(p2.Lat())))
	sinU1, cosU1 := math.Sincos(u1)
	sinU2, cosU2 := math.Sincos(u2)

	var (
		sinSigma, cosSigma, sigma float64
		cosSqAlpha, cos2SigmaM    float64
	)

	lambda := L
	converged := false
	for i := 0; i < vincentyMaxIterations; i++ {
		sinLambda, cosLambda := math.Sincos(lambda)
		sinSigma = math.Sqrt((cosU2*sinLambda)*(cosU2*sinLambda) +
			(cosU1*sinU2-sinU1*cosU2*cosLambda)*(cosU1*sinU2-sinU1*cosU2*cosLambda))
		if sinSigma == 0 {
			return 0, nil // coincident points
		}
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)
		sinAlpha := cosU1 * cosU2 * sinLambda / sinSigma
		cosSqAlpha = 1 - sinAlpha*sinAlpha
		if cosSqAlpha != 0 {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cosSqAlpha
		} else {
			cos2SigmaM = 0 // equatorial line
		}
		c := wgs84F / 16 * cosSqAlpha * (4 + wgs84F*(4-3*cosSqAlpha))
		prev := lambda
		lambda = L + (1-c)*wgs84F*sinAlpha*
			(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))
		if math.Abs(lambda-prev) <= vincentyEpsilon {
			converged = true
			break
		}
	}
	if !converged || math.IsNaN(lambda) {
		return 0, ErrVincentyNoConvergence
	}

	uSq := cosSqAlpha * (wgs84A*wgs84A - wgs84B*wgs84B) / (wgs84B * wgs84B)
	a := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	b := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
	deltaSigma := b * sinSigma * (cos2SigmaM + b/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
		b/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))

	return wgs84B * a * (sigma - deltaSigma), nil
}

// PathDistance sums the Vincenty distance of each consecutive pair of
// points. Pairs that fail to converge contribute nothing.
func PathDistance(points iter.Seq[orb.Point]) float64 {
	var (
		total float64
		prev  orb.Point
		first = true
	)
	for p := range points {
		if !first {
			if d, err := Vincenty(prev, p); err == nil {
				total += d
			}
		}
		prev, first = p, false
	}
	return total
}
