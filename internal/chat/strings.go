package chat

import "github.com/smartmap-fr/smartmap/internal/locale"

// Strings are the user-facing texts of the assistant panel.
type Strings struct {
	Welcome           string
	ExamplesHeader    string
	Suggestions       []string
	Loading           string
	ConnectionError   string
	ErrorPrefix       string
	PredictionsHeader string
	RankingHeader     string
	PredictedPrice    string
}

var catalog = map[locale.Language]Strings{
	locale.French: {
		Welcome:        "👋 Bonjour ! Je suis votre assistant IA spécialisé dans l'immobilier français. Posez-moi des questions sur les données DVF !",
		ExamplesHeader: "💡 Exemples de questions:",
		Suggestions: []string{
			"Quel arrondissement parisien a le plus progressé depuis 2020 ?",
			"Comment a évolué l'immobilier en France depuis 2021 ?",
			"Où investir dans Paris en 2024 ?",
			"🔮 Prédictions prix immobilier 2025 Paris",
			"🔮 Quels seront les prix en France en 2025 ?",
			"🔮 Arrondissements les plus chers en 2025",
		},
		Loading:           "Analyse en cours…",
		ConnectionError:   "❌ Erreur de connexion. Vérifiez que le serveur fonctionne.",
		ErrorPrefix:       "❌ Erreur: ",
		PredictionsHeader: "🔮 PRÉDICTIONS 2025",
		RankingHeader:     "🏆 TOP 5 ARRONDISSEMENTS PRÉDITS 2025:",
		PredictedPrice:    "Prix prédit",
	},
	locale.English: {
		Welcome:        "👋 Hello! I am your AI assistant specialized in French real estate. Ask me questions about DVF data!",
		ExamplesHeader: "💡 Example questions:",
		Suggestions: []string{
			"Which Paris district has progressed the most since 2020?",
			"How has real estate evolved in France since 2021?",
			"Where to invest in Paris in 2024?",
			"🔮 Real estate price predictions 2025 Paris",
			"🔮 What will prices be in France in 2025?",
			"🔮 Most expensive districts in 2025",
		},
		Loading:           "Analyzing data…",
		ConnectionError:   "❌ Connection error. Check that the server is running.",
		ErrorPrefix:       "❌ Error: ",
		PredictionsHeader: "🔮 PREDICTIONS 2025",
		RankingHeader:     "🏆 TOP 5 PREDICTED DISTRICTS 2025:",
		PredictedPrice:    "Predicted price",
	},
}

// For returns the texts of lang, falling back to French.
func For(lang locale.Language) Strings {
	if s, ok := catalog[lang]; ok {
		return s
	}
	return catalog[locale.French]
}
