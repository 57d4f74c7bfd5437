package pixelbot

import (
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorDistanceMethod measures how far apart two colors are. Smaller is
// closer; identical colors must measure 0.
type ColorDistanceMethod interface {
	Distance(a, b RGB) float64
	Name() string
}

// ManhattanMethod is the sum of absolute channel differences. It is the
// metric the canvas bot has always used and the default everywhere.
type ManhattanMethod struct{}

func (ManhattanMethod) Distance(a, b RGB) float64 {
	return float64(ManhattanDistance(a, b))
}

func (ManhattanMethod) Name() string { return "manhattan" }

// RedmeanMethod is the weighted Euclidean "redmean" approximation of
// perceived difference.
type RedmeanMethod struct{}

func (RedmeanMethod) Distance(a, b RGB) float64 {
	rmean := (float64(a.R) + float64(b.R)) / 2
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return math.Sqrt((2+rmean/256)*dr*dr + 4*dg*dg + (2+(255-rmean)/256)*db*db)
}

func (RedmeanMethod) Name() string { return "redmean" }

// LABMethod is the CIE76 distance in L*a*b* space.
type LABMethod struct{}

func (LABMethod) Distance(a, b RGB) float64 {
	ca, _ := colorful.MakeColor(a.ToColor())
	cb, _ := colorful.MakeColor(b.ToColor())
	return ca.DistanceLab(cb)
}

func (LABMethod) Name() string { return "lab" }

// DistanceMethodByName resolves a config value to a method. The empty
// string selects ManhattanMethod.
func DistanceMethodByName(name string) (ColorDistanceMethod, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "manhattan":
		return ManhattanMethod{}, nil
	case "redmean":
		return RedmeanMethod{}, nil
	case "lab":
		return LABMethod{}, nil
	}
	return nil, fmt.Errorf("unknown color distance method %q, options are manhattan, redmean, or lab", name)
}
