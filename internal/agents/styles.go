package agents

import domain "github.com/ventia/api/internal/domain"

// Register-specific phrasing. Every customer-facing template exists in the
// four styles; neutral doubles as the fallback for unknown values.

var farewells = map[domain.Style]string{
	domain.StyleCuencano: "Entendido ve. Aquí estaré si cambias de opinión. ¡Buen día!",
	domain.StyleJuvenil:  "Ok bro, acá estoy por si cambias de idea. ¡Saludos!",
	domain.StyleFormal:   "Entendido. Quedo a su disposición. ¡Que tenga un buen día!",
	domain.StyleNeutral:  "Entendido. Aquí estaré si cambias de opinión. ¡Buen día!",
}

var searchGreetings = map[domain.Style]string{
	domain.StyleCuencano: "Ayayay, mirá lo que tengo para vos:",
	domain.StyleJuvenil:  "¡Che, mira lo que encontré!",
	domain.StyleFormal:   "He encontrado los siguientes productos:",
	domain.StyleNeutral:  "Encontré estos productos:",
}

var infoLeadIns = map[domain.Style]string{
	domain.StyleCuencano: "¡Claro ve! ",
	domain.StyleJuvenil:  "¡Dale! ",
	domain.StyleFormal:   "Con gusto le informo: ",
	domain.StyleNeutral:  "",
}

// stylePrompts steer the LLM's voice when generating free text.
var stylePrompts = map[domain.Style]string{
	domain.StyleCuencano: "Habla como cuencano: cercano, usa \"ve\" y \"vos\" con naturalidad, cálido sin exagerar.",
	domain.StyleJuvenil:  "Habla juvenil y relajado: tutea, usa expresiones como \"bro\" con moderación.",
	domain.StyleFormal:   "Habla formal: trata de usted, lenguaje cortés y profesional.",
	domain.StyleNeutral:  "Habla en un tono amable y neutral, tuteando con respeto.",
}

// Farewell returns the goodbye line for the style.
func Farewell(style domain.Style) string {
	if text, ok := farewells[style]; ok {
		return text
	}
	return farewells[domain.StyleNeutral]
}

// SearchGreeting returns the line that introduces product results.
func SearchGreeting(style domain.Style) string {
	if text, ok := searchGreetings[style]; ok {
		return text
	}
	return searchGreetings[domain.StyleNeutral]
}

// InfoLeadIn returns the prefix for store-information answers.
func InfoLeadIn(style domain.Style) string {
	if text, ok := infoLeadIns[style]; ok {
		return text
	}
	return infoLeadIns[domain.StyleNeutral]
}

// StylePrompt returns the LLM voice instruction for the style.
func StylePrompt(style domain.Style) string {
	if text, ok := stylePrompts[style]; ok {
		return text
	}
	return stylePrompts[domain.StyleNeutral]
}
