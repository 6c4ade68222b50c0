package feature

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

const (
	GrowthLinear    = "linear"
	GrowthQuadratic = "quadratic"
	GrowthCubic     = "cubic"
)

// Growth is a polynomial trend term x^Power of the time regressor.
type Growth struct {
	Name  string `json:"name"`
	Power int    `json:"power"`
}

// NewGrowth returns the growth feature for the given power. Powers 1 through 3 use
// their common names, higher powers are labeled powN.
func NewGrowth(power int) *Growth {
	var name string
	switch power {
	case 1:
		name = GrowthLinear
	case 2:
		name = GrowthQuadratic
	case 3:
		name = GrowthCubic
	default:
		name = fmt.Sprintf("pow%d", power)
	}
	return &Growth{Name: name, Power: power}
}

func Linear() *Growth {
	return NewGrowth(1)
}

func Quadratic() *Growth {
	return NewGrowth(2)
}

func Cubic() *Growth {
	return NewGrowth(3)
}

// String returns the string representation of the growth feature
func (g Growth) String() string {
	return fmt.Sprintf("growth_%s", g.Name)
}

// Get returns the value of an arbitrary label annd returns the value along with whether
// the label exists
func (g Growth) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return g.Name, true
	case "power":
		return strconv.Itoa(g.Power), true
	}
	return "", false
}

// Type returns the type of this feature
func (g Growth) Type() FeatureType {
	return FeatureTypeGrowth
}

// Decode converts the feature into a map of label values
func (g Growth) Decode() map[string]string {
	res := make(map[string]string)
	res["name"] = g.Name
	res["power"] = strconv.Itoa(g.Power)
	return res
}

// UnmarshalJSON is the custom unmarshalling to convert a map[string]string
// to a growth feature
func (g *Growth) UnmarshalJSON(data []byte) error {
	var labelStr struct {
		Name  string          `json:"name"`
		Power json.RawMessage `json:"power"`
	}
	if err := json.Unmarshal(data, &labelStr); err != nil {
		return err
	}

	// power is a string when decoded from labels and a number when marshalled directly
	raw := strings.Trim(string(labelStr.Power), `"`)
	power, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid growth power %q, %w", raw, err)
	}
	g.Name = labelStr.Name
	g.Power = power
	return nil
}

// Generate raises every input value to the feature power
func (g Growth) Generate(x []float64) []float64 {
	res := make([]float64, len(x))
	for i, v := range x {
		switch g.Power {
		case 1:
			res[i] = v
		case 2:
			res[i] = v * v
		case 3:
			res[i] = v * v * v
		default:
			res[i] = math.Pow(v, float64(g.Power))
		}
	}
	return res
}

// Polynomial generates the growth features x^1 through x^degree in increasing power.
func Polynomial(x []float64, degree int) *Set {
	s := NewSet()
	for p := 1; p <= degree; p++ {
		g := NewGrowth(p)
		s.Set(g, g.Generate(x))
	}
	return s
}
