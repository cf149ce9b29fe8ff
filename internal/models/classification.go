package models

// Classification is the normalized result of classifying a vehicle image.
type Classification struct {
	Brand  string `json:"brand"`
	Model  string `json:"model"`
	Year   string `json:"year"`
	Engine string `json:"engine,omitempty"`
}
