package taxonomy

// BuiltinVersion identifies the reference catalog compiled into the binary.
const BuiltinVersion = "builtin-1"

func builtinCategories() []Category {
	return []Category{
		{
			Name:  Occasion,
			Label: "occasion",
			Values: []string{
				"casual", "formal", "business", "party", "wedding", "date night",
				"interview", "workout", "beach", "travel", "funeral", "graduation", "brunch",
			},
			Sentinel:     "None",
			Default:      "casual",
			Question:     "What's the occasion you're dressing for?",
			Confirmation: "A {value} look, great choice.",
		},
		{
			Name:         Weather,
			Label:        "weather",
			Values:       []string{"sunny", "rainy", "snowy", "cold", "hot", "warm", "windy", "cloudy", "humid", "mild"},
			Sentinel:     "any",
			Question:     "What will the weather be like?",
			Confirmation: "Noted, dressing for {value} weather.",
		},
		{
			Name:         OutfitStyle,
			Label:        "outfit style",
			Values:       []string{"minimalist", "streetwear", "classic", "bohemian", "sporty", "preppy", "vintage", "elegant", "edgy"},
			Sentinel:     "None",
			Question:     "Which outfit style are you going for?",
			Confirmation: "A {value} outfit it is.",
		},
		{
			Name:         ColorPreference,
			Label:        "color preference",
			Values:       []string{"black", "white", "navy", "beige", "red", "green", "pastel", "earth tones", "neutral", "bright", "monochrome"},
			Sentinel:     "None",
			Question:     "Any colors you'd like to wear?",
			Confirmation: "I'll lean towards {value}.",
		},
		{
			Name:         FitPreference,
			Label:        "fit",
			Values:       []string{"slim", "regular", "relaxed", "oversized", "tailored", "loose"},
			Sentinel:     "None",
			Question:     "How do you like your clothes to fit?",
			Confirmation: "A {value} fit, got it.",
		},
		{
			Name:         MaterialPreference,
			Label:        "material",
			Values:       []string{"cotton", "linen", "wool", "denim", "silk", "leather", "polyester", "cashmere"},
			Sentinel:     "None",
			Question:     "Is there a fabric you prefer?",
			Confirmation: "{value} noted.",
		},
		{
			Name:         Season,
			Label:        "season",
			Values:       []string{"spring", "summer", "autumn", "fall", "winter"},
			Sentinel:     "None",
			Question:     "Which season is this for?",
			Confirmation: "Picking pieces for {value}.",
		},
		{
			Name:         TimeOfDay,
			Label:        "time of day",
			Values:       []string{"morning", "afternoon", "evening", "night"},
			Sentinel:     "None",
			Question:     "What time of day will you be wearing it?",
			Confirmation: "Planning for the {value}.",
		},
		{
			Name:         Budget,
			Label:        "budget",
			Values:       []string{"affordable", "mid-range", "premium", "luxury"},
			Sentinel:     "None",
			Question:     "What's your budget like?",
			Confirmation: "Keeping it {value}.",
		},
		{
			Name:         PersonalStyle,
			Label:        "personal style",
			Values:       []string{"conservative", "trendy", "adventurous", "understated", "bold", "romantic", "practical"},
			Sentinel:     "None",
			Question:     "How would you describe your personal style?",
			Confirmation: "Great, a {value} style.",
		},
	}
}

// Builtin returns the reference catalog.
func Builtin() *Taxonomy {
	t, err := New(BuiltinVersion, builtinCategories())
	if err != nil {
		panic("taxonomy: builtin catalog is invalid: " + err.Error())
	}
	return t
}
