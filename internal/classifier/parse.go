package classifier

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ukydev/car-maintenance/internal/apperr"
	"github.com/ukydev/car-maintenance/internal/models"
)

// text decodes a JSON string, number or null.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*t = text(n.String())
	return nil
}

type payload struct {
	Brand  text `json:"brand"`
	Model  text `json:"model"`
	Year   text `json:"year"`
	Engine text `json:"engine"`
}

// ParseClassification validates the model's JSON answer. brand, model and year are
// required; a year range such as "2018-2020" is reduced to its first year.
func ParseClassification(raw string) (models.Classification, error) {
	body := stripFences(raw)
	if body == "" {
		return models.Classification{}, apperr.InvalidResponse("empty classifier response")
	}

	var p payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return models.Classification{}, apperr.InvalidResponse("classifier response is not valid JSON: %v", err)
	}

	c := models.Classification{
		Brand:  strings.TrimSpace(string(p.Brand)),
		Model:  strings.TrimSpace(string(p.Model)),
		Year:   strings.TrimSpace(string(p.Year)),
		Engine: strings.TrimSpace(string(p.Engine)),
	}

	var missing []string
	if c.Brand == "" {
		missing = append(missing, "brand")
	}
	if c.Model == "" {
		missing = append(missing, "model")
	}
	if c.Year == "" {
		missing = append(missing, "year")
	}
	if len(missing) > 0 {
		return models.Classification{}, apperr.InvalidResponse("classifier response is missing %s", strings.Join(missing, ", "))
	}

	year, _, _ := strings.Cut(c.Year, "-")
	c.Year = strings.TrimSpace(year)
	if c.Year == "" {
		return models.Classification{}, apperr.InvalidResponse("classifier returned an unusable year %q", p.Year)
	}
	if strings.EqualFold(c.Engine, "null") {
		c.Engine = ""
	}
	return c, nil
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop an info string such as "json".
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// YearNumber parses a normalized classification year.
func YearNumber(c models.Classification) (int, error) {
	y, err := strconv.Atoi(c.Year)
	if err != nil {
		return 0, apperr.InvalidResponse("classifier year %q is not a number", c.Year)
	}
	return y, nil
}
