package classify

// Category is a complaint category with its keyword list and the department
// that handles it.
type Category struct {
	Name       string
	Department string
	Keywords   []string
}

// Config is the keyword configuration a Classifier scores against.
// Category order is significant: on equal scores the earlier category wins.
type Config struct {
	Categories []Category

	Urgent []string // any match yields Critical
	High   []string
	Low    []string

	Positive []string
	Negative []string
}

// DefaultConfig returns the built-in vocabulary.
func DefaultConfig() Config {
	return Config{
		Categories: builtinCategories(),
		Urgent: []string{
			"emergency", "urgent", "urgently", "immediately", "danger", "dangerous",
			"life-threatening", "critical", "fire", "accident", "collapse", "collapsed",
			"flooding", "electrocution", "death", "injured",
		},
		High: []string{
			"broken", "damaged", "not working", "serious", "severe", "unsafe",
			"weeks", "repeatedly", "no response", "overflowing", "outage",
		},
		Low: []string{
			"suggestion", "minor", "request", "improvement", "feedback",
			"whenever possible", "small",
		},
		Positive: []string{
			"thank", "thanks", "good", "great", "appreciate", "helpful",
			"excellent", "satisfied", "quick", "resolved",
		},
		Negative: []string{
			"bad", "poor", "terrible", "worst", "angry", "frustrated", "cut",
			"broken", "dirty", "delay", "delayed", "failed", "not working",
			"ignored", "corrupt", "rude", "emergency",
		},
	}
}

func builtinCategories() []Category {
	return []Category{
		{
			Name:       "infrastructure",
			Department: "Public Works Department",
			Keywords: []string{
				"road", "pothole", "bridge", "water", "supply", "pipeline", "pipe",
				"electricity", "power", "streetlight", "drainage", "sewage", "construction",
			},
		},
		{
			Name:       "sanitation",
			Department: "Sanitation Department",
			Keywords: []string{
				"garbage", "waste", "trash", "sanitation", "cleaning", "dustbin",
				"litter", "toilet", "smell", "stray",
			},
		},
		{
			Name:       "health",
			Department: "Health Department",
			Keywords: []string{
				"hospital", "clinic", "doctor", "medicine", "disease", "health",
				"ambulance", "vaccination", "mosquito", "dengue",
			},
		},
		{
			Name:       "education",
			Department: "Education Department",
			Keywords: []string{
				"school", "teacher", "college", "education", "student", "scholarship",
				"exam", "classroom",
			},
		},
		{
			Name:       "transport",
			Department: "Transport Department",
			Keywords: []string{
				"bus", "traffic", "transport", "parking", "signal", "license",
				"vehicle", "metro",
			},
		},
		{
			Name:       "public_safety",
			Department: "Police Department",
			Keywords: []string{
				"police", "crime", "theft", "harassment", "safety", "violence",
				"noise", "robbery",
			},
		},
		{
			Name:       "revenue",
			Department: "Revenue Department",
			Keywords: []string{
				"tax", "property", "land", "certificate", "records", "registration",
			},
		},
		{
			Name:       "social_welfare",
			Department: "Social Welfare Department",
			Keywords: []string{
				"pension", "elderly", "disability", "ration", "welfare", "subsidy",
			},
		},
	}
}
