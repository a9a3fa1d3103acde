// Package knowledge maps classifier labels to canned agronomy advice.
package knowledge

import (
	"errors"
	"strings"
)

// ErrUnknownClass indicates the label matched nothing in the advice table.
var ErrUnknownClass = errors.New("knowledge: no advice for class")

const (
	// StatusHealthy marks a scan whose label contains "healthy".
	StatusHealthy = "Healthy"
	// StatusInfected marks every other known diagnosis.
	StatusInfected = "Infected"
)

// Report is the full diagnosis text shown to the user after a scan.
type Report struct {
	Label      string  `json:"label"`
	Status     string  `json:"status"`
	Confidence float32 `json:"confidence"`
	Cause      string  `json:"cause"`
	Symptoms   string  `json:"symptoms"`
	Treatment  string  `json:"treatment"`
	Prevention string  `json:"prevention"`
}

type advice struct {
	cause      string
	symptoms   string
	treatment  string
	prevention string
}

var adviceTable = map[string]advice{
	"bacterial spot": {
		cause:      "Bacterial infection (Xanthomonas)",
		symptoms:   "Small, water-soaked spots on leaves turning brown/black.",
		treatment:  "Apply copper-based fungicides. Remove infected leaves.",
		prevention: "Avoid overhead watering. Rotate crops yearly.",
	},
	"early blight": {
		cause:      "Fungal infection (Alternaria solani)",
		symptoms:   "Concentric rings (bullseye pattern) on lower leaves.",
		treatment:  "Use bio-fungicides or copper sprays.",
		prevention: "Mulch soil to prevent spore splash. Stake plants.",
	},
	"late blight": {
		cause:      "Water mold (Phytophthora infestans)",
		symptoms:   "Large, dark, greasy blotches. White fuzzy growth.",
		treatment:  "Use fungicides with chlorothalonil/copper immediately.",
		prevention: "Destroy infected debris. Do not compost.",
	},
	"powdery mildew": {
		cause:      "Fungal spores",
		symptoms:   "White, flour-like powder on leaf surfaces.",
		treatment:  "Neem oil, sulfur sprays, or baking soda mixture.",
		prevention: "Ensure good air circulation.",
	},
	"healthy": {
		cause:      "N/A",
		symptoms:   "Leaves are vibrant green and structurally sound.",
		treatment:  "Continue current care routine.",
		prevention: "Monitor regularly.",
	},
}

// BuildReport looks up advice for a raw classifier label. Labels are
// normalized (underscores dropped, case folded) and matched by substring,
// so "Tomato___Early_blight" still finds "early blight".
func BuildReport(rawLabel string, confidence float32) (*Report, error) {
	clean := normalize(rawLabel)
	lower := strings.ToLower(clean)

	for key, a := range adviceTable {
		if !strings.Contains(lower, key) {
			continue
		}
		return &Report{
			Label:      clean,
			Status:     statusFor(lower),
			Confidence: confidence,
			Cause:      a.cause,
			Symptoms:   a.symptoms,
			Treatment:  a.treatment,
			Prevention: a.prevention,
		}, nil
	}

	return nil, ErrUnknownClass
}

// GenericReport is the "no data available" fallback shown when the label
// is outside the advice table.
func GenericReport(rawLabel string, confidence float32) *Report {
	clean := normalize(rawLabel)
	return &Report{
		Label:      clean,
		Status:     statusFor(strings.ToLower(clean)),
		Confidence: confidence,
		Cause:      "Unknown pathogen or environmental stress.",
		Symptoms:   "Visible discoloration or lesions.",
		Treatment:  "Isolate plant. Consult local agricultural extension.",
		Prevention: "Maintain general hygiene.",
	}
}

func normalize(rawLabel string) string {
	clean := strings.ReplaceAll(rawLabel, "_", " ")
	return strings.Join(strings.Fields(clean), " ")
}

func statusFor(lowerLabel string) string {
	if strings.Contains(lowerLabel, "healthy") {
		return StatusHealthy
	}
	return StatusInfected
}
