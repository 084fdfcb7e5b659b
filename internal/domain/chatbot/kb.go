package chatbot

// The knowledge base is static: keyword lists per intent, triage entries, and
// the health tips rotation. Matching is case-insensitive substring search.

var emergencyKeywords = []string{
	"emergency",
	"chest pain",
	"heart attack",
	"stroke",
	"can't breathe",
	"cannot breathe",
	"difficulty breathing",
	"unconscious",
	"severe bleeding",
	"suicidal",
	"overdose",
}

var appointmentKeywords = []string{
	"appointment",
	"book",
	"schedule",
	"reschedule",
	"cancel my",
	"availability",
	"available slot",
	"see a doctor",
}

var recordsKeywords = []string{
	"record",
	"prescription",
	"lab result",
	"test result",
	"diagnosis",
	"medical history",
	"blood work",
}

var paymentKeywords = []string{
	"pay",
	"bill",
	"invoice",
	"fee",
	"insurance",
	"cost",
	"charge",
	"refund",
}

var tipsKeywords = []string{
	"health tip",
	"tip",
	"healthy",
	"diet",
	"exercise",
	"nutrition",
	"sleep better",
	"wellness",
}

var greetingKeywords = []string{
	"hello",
	"hi ",
	"hi!",
	"hey",
	"good morning",
	"good afternoon",
	"good evening",
}

var symptoms = []SymptomInfo{
	{
		Name:     "headache",
		Advice:   "Rest in a quiet dark room, stay hydrated, and consider an over-the-counter pain reliever.",
		SeeADoc:  "it is sudden and severe, follows a head injury, or comes with fever, stiff neck, confusion, or vision changes.",
		Keywords: []string{"headache", "migraine", "head hurts"},
	},
	{
		Name:     "fever",
		Advice:   "Rest, drink fluids, and monitor your temperature. Paracetamol can help bring it down.",
		SeeADoc:  "it stays above 39.4C, lasts more than three days, or comes with a rash or breathing trouble.",
		Keywords: []string{"fever", "temperature", "chills"},
	},
	{
		Name:     "cough",
		Advice:   "Stay hydrated, use honey or lozenges, and rest your voice.",
		SeeADoc:  "it lasts over three weeks, brings up blood, or comes with chest pain or shortness of breath.",
		Keywords: []string{"cough", "coughing"},
	},
	{
		Name:     "sore throat",
		Advice:   "Gargle warm salt water, drink warm fluids, and rest.",
		SeeADoc:  "swallowing becomes difficult, it lasts over a week, or you develop a high fever.",
		Keywords: []string{"sore throat", "throat hurts"},
	},
	{
		Name:     "nausea",
		Advice:   "Sip clear fluids, eat bland food, and avoid strong smells.",
		SeeADoc:  "you cannot keep liquids down for 24 hours or see blood when vomiting.",
		Keywords: []string{"nausea", "vomit", "throwing up", "queasy"},
	},
	{
		Name:     "dizziness",
		Advice:   "Sit or lie down until it passes, rise slowly, and drink water.",
		SeeADoc:  "it is recurrent, follows a head injury, or comes with chest pain or slurred speech.",
		Keywords: []string{"dizzy", "dizziness", "lightheaded", "vertigo"},
	},
	{
		Name:     "fatigue",
		Advice:   "Prioritize sleep, eat regular balanced meals, and pace your activity.",
		SeeADoc:  "it persists for weeks despite rest or comes with unexplained weight loss.",
		Keywords: []string{"fatigue", "tired", "exhausted", "no energy"},
	},
	{
		Name:     "rash",
		Advice:   "Keep the area clean and dry, avoid scratching, and try a cool compress.",
		SeeADoc:  "it spreads quickly, blisters, or appears with fever or swelling of the face.",
		Keywords: []string{"rash", "itchy skin", "hives"},
	},
}

var healthTips = []string{
	"Aim for at least 150 minutes of moderate exercise a week.",
	"Fill half your plate with vegetables and fruit at each meal.",
	"Keep a consistent sleep schedule, even on weekends.",
	"Drink water before you feel thirsty, especially in hot weather.",
	"Schedule a routine checkup once a year, even when you feel fine.",
	"Wash your hands for at least 20 seconds to cut infection risk.",
	"Take short movement breaks if you sit for long stretches.",
	"Limit added sugar; sweetened drinks are the easiest place to start.",
}
