package i18n

// Language represents a supported language.
type Language string

const (
	// English is the English language.
	English Language = "en"
	// German is the German language.
	German Language = "de"
)

// DefaultLanguage is the fallback language.
const DefaultLanguage = Language(English)

// translations maps language codes to translation keys and their values.
//
//nolint:gochecknoglobals // static lookup table.
var translations = map[Language]map[string]string{
	English: {
		"app.title":   "VeloCoach",
		"app.tagline": "Your 4-week cycling plan, built around your week.",

		"nav.privacy":  "Privacy",
		"nav.imprint":  "Imprint",
		"nav.signin":   "Sign in",
		"nav.register": "Register",
		"nav.signout":  "Sign out",
		"nav.myplans":  "My plans",

		"nav.delete": "Delete account",

		"landing.headline":     "Train smarter, not just harder.",
		"landing.intro":        "Answer a few questions about your goals, schedule and fitness. We build a periodized 4-week plan with concrete power or heart-rate targets.",
		"landing.start":        "Start questionnaire",
		"landing.lookup.title": "Already have a plan?",
		"landing.lookup.label": "Plan code",
		"landing.lookup.open":  "Open plan",
		"landing.lookup.hint":  "The 4-character code is shown on every generated plan.",

		"landing.sample": "See a sample plan",

		"q.step":             "Step",
		"q.of":               "of",
		"q.next":             "Next",
		"q.back":             "Back",
		"q.cancel":           "Cancel",
		"q.submit":           "Create plan",
		"q.update":           "Update",
		"q.check":            "Check values",
		"q.quota":            "Plans left today",
		"q.goal.title":       "What are you training for?",
		"q.level.title":      "How would you describe your current level?",
		"q.schedule.title":   "When can you ride?",
		"q.schedule.days":    "Training days",
		"q.schedule.hours":   "Hours per week",
		"q.schedule.range":   "Allowed range",
		"q.schedule.none":    "Select at least one day to set your weekly hours.",
		"q.metrics.title":    "Which values do you know?",
		"q.metrics.ftp":      "FTP (watts)",
		"q.metrics.hr":       "Max heart rate (bpm)",
		"q.details.title":    "About you",
		"q.details.age":      "Age",
		"q.details.weight":   "Weight (kg)",
		"q.details.gender":   "Gender",
		"q.equipment.title":  "Which equipment do you own?",
		"q.equipment.none":   "No special equipment is fine too.",
		"q.preference.title": "Where do you prefer to ride?",

		"step.goal":       "Goal",
		"step.level":      "Level",
		"step.schedule":   "Schedule",
		"step.metrics":    "Metrics",
		"step.details":    "About you",
		"step.equipment":  "Equipment",
		"step.preference": "Preference",

		"knowledge.both": "FTP and max heart rate",
		"knowledge.ftp":  "Only FTP",
		"knowledge.hr":   "Only max heart rate",
		"knowledge.none": "Neither",

		"status.ftp.warning": "This FTP is unusual. Please double-check it.",
		"status.ftp.invalid": "FTP must be between 40 and 600 watts.",
		"status.hr.warning":  "This max heart rate is unusual. Please double-check it.",
		"status.hr.invalid":  "Max heart rate must be between 120 and 220 bpm.",

		"goal.Gran Fondo":      "Gran Fondo",
		"goal.Kriterium":       "Criterium",
		"goal.Fitness":         "Fitness",
		"goal.All-round":       "All-round",
		"goal.desc.Gran Fondo": "Long distances, endurance and fat metabolism.",
		"goal.desc.Kriterium":  "Sprints, surges and anaerobic capacity.",
		"goal.desc.Fitness":    "Health, calories and steady volume.",
		"goal.desc.All-round":  "Raise your threshold power.",

		"level.Beginner":          "Beginner",
		"level.Intermediate":      "Intermediate",
		"level.Advanced":          "Advanced",
		"level.desc.Beginner":     "0-3 hours a week, new to structured training.",
		"level.desc.Intermediate": "4-8 hours a week, familiar with intervals.",
		"level.desc.Advanced":     "8+ hours a week, experienced with power zones and TSS.",

		"day.Mo": "Mon",
		"day.Di": "Tue",
		"day.Mi": "Wed",
		"day.Do": "Thu",
		"day.Fr": "Fri",
		"day.Sa": "Sat",
		"day.So": "Sun",

		"gender.male":        "Male",
		"gender.female":      "Female",
		"gender.unspecified": "Prefer not to say",

		"equipment.Smart Trainer":      "Smart trainer",
		"equipment.Power Meter":        "Power meter",
		"equipment.Heart Rate Monitor": "Heart rate monitor",

		"preference.split":    "Indoor on weekdays, outdoor on weekends",
		"preference.indoor":   "Always indoor",
		"preference.outdoor":  "Always outdoor",
		"preference.flexible": "No preference",

		"loading.title": "Your coach is at work",
		"loading.text":  "Generating your plan usually takes less than a minute. This page refreshes by itself.",

		"plan.summary":   "Summary",
		"plan.tss":       "Estimated TSS",
		"plan.volume":    "Weekly volume",
		"plan.week":      "Week",
		"plan.code":      "Plan code",
		"plan.reset":     "New plan",
		"plan.intervals": "Intervals",
		"plan.minutes":   "min",
		"plan.created":   "Created",
		"plan.back":      "Back to start",

		"plan.duration": "Duration",
		"plan.chart":    "Daily load",
		"plan.share":    "Use this code to open your plan again at any time.",

		"intensity.Low":      "Low",
		"intensity.Moderate": "Moderate",
		"intensity.High":     "High",
		"intensity.Rest":     "Rest",

		"plans.title": "My plans",
		"plans.empty": "You have not saved any plans yet.",

		"plans.open": "Open",

		"error.daily_limit":     "The daily limit for new plans is reached. Please come back tomorrow.",
		"error.rate_limit":      "Our AI coach is very busy right now. Please wait a moment and try again.",
		"error.generic":         "Creating your plan failed. Please try again.",
		"error.unavailable":     "Plan generation is currently unavailable.",
		"error.not_found":       "Plan not found. Please check the code.",
		"error.invalid_code":    "A plan code has exactly 4 characters.",
		"error.auth_cancelled":  "Sign-in was cancelled. Please try again and confirm the passkey prompt.",
		"error.signin_required": "Please sign in to open saved plans.",
		"error.lookup_failed":   "Looking up the plan failed. Please try again later.",
		"error.dismiss":         "Dismiss",
		"error.page.title":      "Something went wrong",
		"error.page.text":       "An unexpected error occurred. Please try again.",
		"notfound.title":        "Page not found",
		"notfound.text":         "The page you are looking for does not exist.",
		"access.title":          "Private preview",
		"access.text":           "VeloCoach is currently only available with an invitation link.",
		"legal.privacy.title":   "Privacy policy",
		"legal.imprint.title":   "Imprint",

		"legal.privacy.text": "VeloCoach stores your questionnaire answers and the generated plan so that you can open it again with its code. A random device identifier in a cookie counts the plans created per day. Your answers are sent to our AI provider to generate the plan. Passkeys are stored only as public keys. Deleting your account removes your passkeys and unlinks your plans.",
		"legal.imprint.text": "VeloCoach is a hobby project.\n\nContact: hello@velocoach.example",
		"legal.close":           "Close",
		"language.picker.label": "Language",
		"language.name.en":      "English",
		"language.name.de":      "Deutsch",
		"output.language.name":  "English",
	},
	German: {
		"app.title":   "VeloCoach",
		"app.tagline": "Dein 4-Wochen-Radtrainingsplan, passend zu deiner Woche.",

		"nav.privacy":  "Datenschutz",
		"nav.imprint":  "Impressum",
		"nav.signin":   "Anmelden",
		"nav.register": "Registrieren",
		"nav.signout":  "Abmelden",
		"nav.myplans":  "Meine Pläne",

		"nav.delete": "Konto löschen",

		"landing.headline":     "Trainiere smarter, nicht nur härter.",
		"landing.intro":        "Beantworte ein paar Fragen zu Zielen, Zeitplan und Fitness. Wir erstellen einen periodisierten 4-Wochen-Plan mit konkreten Watt- oder Pulsvorgaben.",
		"landing.start":        "Fragebogen starten",
		"landing.lookup.title": "Du hast schon einen Plan?",
		"landing.lookup.label": "Plan-ID",
		"landing.lookup.open":  "Plan öffnen",
		"landing.lookup.hint":  "Die 4-stellige ID steht auf jedem erstellten Plan.",

		"landing.sample": "Beispielplan ansehen",

		"q.step":             "Schritt",
		"q.of":               "von",
		"q.next":             "Weiter",
		"q.back":             "Zurück",
		"q.cancel":           "Abbrechen",
		"q.submit":           "Plan erstellen",
		"q.update":           "Aktualisieren",
		"q.check":            "Werte prüfen",
		"q.quota":            "Heute noch verfügbare Pläne",
		"q.goal.title":       "Wofür trainierst du?",
		"q.level.title":      "Wie schätzt du dein aktuelles Level ein?",
		"q.schedule.title":   "Wann kannst du fahren?",
		"q.schedule.days":    "Trainingstage",
		"q.schedule.hours":   "Stunden pro Woche",
		"q.schedule.range":   "Erlaubter Bereich",
		"q.schedule.none":    "Wähle mindestens einen Tag, um deine Wochenstunden festzulegen.",
		"q.metrics.title":    "Welche Werte kennst du?",
		"q.metrics.ftp":      "FTP (Watt)",
		"q.metrics.hr":       "Maximalpuls (bpm)",
		"q.details.title":    "Über dich",
		"q.details.age":      "Alter",
		"q.details.weight":   "Gewicht (kg)",
		"q.details.gender":   "Geschlecht",
		"q.equipment.title":  "Welche Ausrüstung besitzt du?",
		"q.equipment.none":   "Auch ohne spezielle Ausrüstung geht es.",
		"q.preference.title": "Wo fährst du am liebsten?",

		"step.goal":       "Ziel",
		"step.level":      "Level",
		"step.schedule":   "Zeitplan",
		"step.metrics":    "Werte",
		"step.details":    "Über dich",
		"step.equipment":  "Ausrüstung",
		"step.preference": "Vorliebe",

		"knowledge.both": "FTP und Maximalpuls",
		"knowledge.ftp":  "Nur FTP",
		"knowledge.hr":   "Nur Maximalpuls",
		"knowledge.none": "Keines von beiden",

		"status.ftp.warning": "Dieser FTP-Wert ist ungewöhnlich. Bitte überprüfe ihn.",
		"status.ftp.invalid": "Die FTP muss zwischen 40 und 600 Watt liegen.",
		"status.hr.warning":  "Dieser Maximalpuls ist ungewöhnlich. Bitte überprüfe ihn.",
		"status.hr.invalid":  "Der Maximalpuls muss zwischen 120 und 220 bpm liegen.",

		"goal.Gran Fondo":      "Gran Fondo",
		"goal.Kriterium":       "Kriterium",
		"goal.Fitness":         "Fitness",
		"goal.All-round":       "All-round",
		"goal.desc.Gran Fondo": "Lange Distanzen, Ausdauer und Fettstoffwechsel.",
		"goal.desc.Kriterium":  "Sprints, Tempowechsel und anaerobe Kapazität.",
		"goal.desc.Fitness":    "Gesundheit, Kalorienverbrauch und gleichmäßiges Volumen.",
		"goal.desc.All-round":  "Steigere deine Schwellenleistung.",

		"level.Beginner":          "Einsteiger",
		"level.Intermediate":      "Fortgeschritten",
		"level.Advanced":          "Ambitioniert",
		"level.desc.Beginner":     "0-3 Stunden pro Woche, neu im strukturierten Training.",
		"level.desc.Intermediate": "4-8 Stunden pro Woche, Intervalle sind vertraut.",
		"level.desc.Advanced":     "Über 8 Stunden pro Woche, erfahren mit Wattzonen und TSS.",

		"day.Mo": "Mo",
		"day.Di": "Di",
		"day.Mi": "Mi",
		"day.Do": "Do",
		"day.Fr": "Fr",
		"day.Sa": "Sa",
		"day.So": "So",

		"gender.male":        "Männlich",
		"gender.female":      "Weiblich",
		"gender.unspecified": "Keine Angabe",

		"equipment.Smart Trainer":      "Smart Trainer",
		"equipment.Power Meter":        "Powermeter",
		"equipment.Heart Rate Monitor": "Pulsmesser",

		"preference.split":    "Unter der Woche drinnen, am Wochenende draußen",
		"preference.indoor":   "Immer drinnen",
		"preference.outdoor":  "Immer draußen",
		"preference.flexible": "Keine Präferenz",

		"loading.title": "Dein Coach arbeitet",
		"loading.text":  "Die Erstellung dauert meist weniger als eine Minute. Diese Seite aktualisiert sich selbst.",

		"plan.summary":   "Zusammenfassung",
		"plan.tss":       "Geschätzter TSS",
		"plan.volume":    "Wochenumfang",
		"plan.week":      "Woche",
		"plan.code":      "Plan-ID",
		"plan.reset":     "Neuer Plan",
		"plan.intervals": "Intervalle",
		"plan.minutes":   "Min",
		"plan.created":   "Erstellt",
		"plan.back":      "Zur Startseite",

		"plan.duration": "Dauer",
		"plan.chart":    "Tagesbelastung",
		"plan.share":    "Mit diesem Code kannst du deinen Plan jederzeit wieder öffnen.",

		"intensity.Low":      "Locker",
		"intensity.Moderate": "Moderat",
		"intensity.High":     "Hart",
		"intensity.Rest":     "Ruhetag",

		"plans.title": "Meine Pläne",
		"plans.empty": "Du hast noch keine Pläne gespeichert.",

		"plans.open": "Öffnen",

		"error.daily_limit":     "Das Tageslimit für neue Pläne ist erreicht. Bitte versuche es morgen wieder.",
		"error.rate_limit":      "Unser KI-Coach ist gerade stark ausgelastet. Bitte warte kurz und versuche es erneut.",
		"error.generic":         "Die Planerstellung ist fehlgeschlagen. Bitte versuche es erneut.",
		"error.unavailable":     "Die Planerstellung ist derzeit nicht verfügbar.",
		"error.not_found":       "Plan nicht gefunden. Bitte überprüfe die ID.",
		"error.invalid_code":    "Eine Plan-ID hat genau 4 Zeichen.",
		"error.auth_cancelled":  "Die Anmeldung wurde abgebrochen. Bitte versuche es erneut und bestätige den Passkey.",
		"error.signin_required": "Bitte melde dich an, um gespeicherte Pläne zu öffnen.",
		"error.lookup_failed":   "Der Plan konnte nicht abgerufen werden. Bitte versuche es später erneut.",
		"error.dismiss":         "Schließen",
		"error.page.title":      "Etwas ist schiefgelaufen",
		"error.page.text":       "Ein unerwarteter Fehler ist aufgetreten. Bitte versuche es erneut.",
		"notfound.title":        "Seite nicht gefunden",
		"notfound.text":         "Die gesuchte Seite existiert nicht.",
		"access.title":          "Geschlossene Vorschau",
		"access.text":           "VeloCoach ist derzeit nur mit einem Einladungslink verfügbar.",
		"legal.privacy.title":   "Datenschutzerklärung",
		"legal.imprint.title":   "Impressum",

		"legal.privacy.text": "VeloCoach speichert deine Antworten und den erstellten Plan, damit du ihn mit seinem Code wieder öffnen kannst. Eine zufällige Geräte-ID in einem Cookie zählt die pro Tag erstellten Pläne. Deine Antworten werden zur Planerstellung an unseren KI-Anbieter gesendet. Passkeys werden nur als öffentliche Schlüssel gespeichert. Beim Löschen deines Kontos werden deine Passkeys entfernt und deine Pläne vom Konto getrennt.",
		"legal.imprint.text": "VeloCoach ist ein Hobbyprojekt.\n\nKontakt: hello@velocoach.example",
		"legal.close":           "Schließen",
		"language.picker.label": "Sprache",
		"language.name.en":      "English",
		"language.name.de":      "Deutsch",
		"output.language.name":  "Deutsch",
	},
}

// SupportedLanguages returns a list of all supported languages.
func SupportedLanguages() []Language {
	return []Language{English, German}
}

// IsSupported checks if a language is supported.
func IsSupported(lang Language) bool {
	_, ok := translations[lang]
	return ok
}

// Translate returns the translation for the given key in the specified language.
// If the key is not found, it falls back to the default language.
// If still not found, it returns the key itself.
func Translate(lang Language, key string) string {
	// Try the requested language.
	if langTranslations, ok := translations[lang]; ok {
		if translation, ok := langTranslations[key]; ok {
			return translation
		}
	}

	// Fallback to default language.
	if lang != DefaultLanguage {
		if langTranslations, ok := translations[DefaultLanguage]; ok {
			if translation, ok := langTranslations[key]; ok {
				return translation
			}
		}
	}

	// Return the key itself if no translation found.
	return key
}

// OutputLanguage names lang in its own words, as used when instructing the plan generator which language to
// answer in.
func OutputLanguage(lang Language) string {
	return Translate(lang, "output.language.name")
}
