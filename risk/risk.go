// Package risk computes a personal risk score from fixed point increments.
package risk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidInput = errors.New("invalid risk input")

type Vaccination string

const (
	FullyVaccinated     Vaccination = "Fully Vaccinated"
	PartiallyVaccinated Vaccination = "Partially Vaccinated"
	NotVaccinated       Vaccination = "Not Vaccinated"
)

type Level string

const (
	Low      Level = "low"
	Moderate Level = "moderate"
	High     Level = "high"
)

const (
	BaseScore      = 10
	MaxScore       = 100
	SymptomPoints  = 5
	ConditionPoint = 10

	// None is the selection meaning no symptoms or no conditions
	None = "None"
)

// Symptoms and Conditions are the choices offered by the calculator form
var (
	Symptoms   = []string{"Fever", "Cough", "Fatigue", "Difficulty Breathing", "Loss of Taste/Smell", "Body Aches", None}
	Conditions = []string{"Diabetes", "Heart Disease", "Lung Disease", "Obesity", "Immunocompromised", None}
)

type ageBracket struct {
	over   int
	points int
}

// brackets are checked in order, the first match wins
var ageBrackets = []ageBracket{
	{over: 60, points: 30},
	{over: 40, points: 20},
	{over: 20, points: 10},
}

var vaccinationPoints = map[Vaccination]int{
	FullyVaccinated:     0,
	PartiallyVaccinated: 15,
	NotVaccinated:       25,
}

type threshold struct {
	below  int
	level  Level
	advice string
}

var levels = []threshold{
	{below: 30, level: Low, advice: "Your risk is relatively low. Continue following basic health guidelines."},
	{below: 60, level: Moderate, advice: "You have moderate risk. Consider consulting a healthcare provider."},
	{below: MaxScore + 1, level: High, advice: "You have high risk factors. Please consult a healthcare professional immediately."},
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Input is the calculator form
type Input struct {
	Age         int         `json:"age" validate:"gte=0,lte=100"`
	Location    string      `json:"location,omitempty"`
	Symptoms    []string    `json:"symptoms" validate:"dive,required"`
	Conditions  []string    `json:"conditions" validate:"dive,required"`
	Vaccination Vaccination `json:"vaccination" validate:"required,oneof='Fully Vaccinated' 'Partially Vaccinated' 'Not Vaccinated'"`
}

func (in Input) Validate() error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w, %w", ErrInvalidInput, err)
	}
	return nil
}

// Assessment is the scored result of an Input
type Assessment struct {
	Score  int    `json:"score"`
	Level  Level  `json:"level"`
	Advice string `json:"advice"`
}

// Percent returns the score as a fraction for progress displays
func (a Assessment) Percent() float64 {
	return float64(a.Score) / MaxScore
}

// Assess validates the input and scores it
func Assess(in Input) (Assessment, error) {
	if err := in.Validate(); err != nil {
		return Assessment{}, err
	}
	score := Score(in)
	t := classify(score)
	return Assessment{Score: score, Level: t.level, Advice: t.advice}, nil
}

// Score sums the increments of the input and caps the result at MaxScore
func Score(in Input) int {
	score := BaseScore
	for _, b := range ageBrackets {
		if in.Age > b.over {
			score += b.points
			break
		}
	}
	score += countSelected(in.Symptoms) * SymptomPoints
	score += countSelected(in.Conditions) * ConditionPoint
	score += vaccinationPoints[in.Vaccination]
	return min(score, MaxScore)
}

// LevelOf returns the level a score falls in
func LevelOf(score int) Level {
	return classify(score).level
}

func classify(score int) threshold {
	for _, t := range levels {
		if score < t.below {
			return t
		}
	}
	return levels[len(levels)-1]
}

// countSelected counts distinct selections ignoring None
func countSelected(choices []string) int {
	seen := make(map[string]struct{}, len(choices))
	for _, c := range choices {
		c = strings.TrimSpace(c)
		if c == "" || strings.EqualFold(c, None) {
			continue
		}
		seen[strings.ToLower(c)] = struct{}{}
	}
	return len(seen)
}
