package catalog

import (
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

// Message keys shared by every test.
const (
	MsgErrorGeneric     = "error.generic"
	MsgErrorInvalidData = "error.invalid_data"
	MsgResumed          = "session.resumed"
	MsgRestarted        = "session.restarted"
	MsgCompleted        = "session.completed"
	MsgProfile          = "result.profile"
	MsgFactor           = "result.factor"
	MsgScore            = "result.score"
	MsgMax              = "result.max"
	MsgPercent          = "result.percent"
	MsgCompletedAt      = "result.completed_at"
	MsgProgress         = "session.progress"
)

var messages = map[string]quiz.LocalizedText{
	"disc.title": {
		quiz.English: "DISC Behavioral Assessment", quiz.Portuguese: "Avaliação Comportamental DISC", quiz.Spanish: "Evaluación Conductual DISC",
	},
	"disc.intro": {
		quiz.English:    "Rate how well each statement describes you.",
		quiz.Portuguese: "Avalie o quanto cada afirmação descreve você.",
		quiz.Spanish:    "Califica cuánto te describe cada afirmación.",
	},
	"disc.result": {
		quiz.English: "Your DISC profile", quiz.Portuguese: "Seu perfil DISC", quiz.Spanish: "Tu perfil DISC",
	},
	"mbti.title": {
		quiz.English: "MBTI Personality Type", quiz.Portuguese: "Tipo de Personalidade MBTI", quiz.Spanish: "Tipo de Personalidad MBTI",
	},
	"mbti.intro": {
		quiz.English:    "For each pair, choose the option that fits you better.",
		quiz.Portuguese: "Em cada par, escolha a opção que combina mais com você.",
		quiz.Spanish:    "En cada par, elige la opción que mejor te describe.",
	},
	"mbti.result": {
		quiz.English: "Your personality type", quiz.Portuguese: "Seu tipo de personalidade", quiz.Spanish: "Tu tipo de personalidad",
	},
	"bigfive.title": {
		quiz.English: "Big Five Personality Traits", quiz.Portuguese: "Cinco Grandes Fatores", quiz.Spanish: "Cinco Grandes Rasgos",
	},
	"bigfive.intro": {
		quiz.English:    "Indicate how much you agree with each statement.",
		quiz.Portuguese: "Indique o quanto você concorda com cada afirmação.",
		quiz.Spanish:    "Indica cuánto estás de acuerdo con cada afirmación.",
	},
	"bigfive.result": {
		quiz.English: "Your trait scores", quiz.Portuguese: "Suas pontuações por traço", quiz.Spanish: "Tus puntuaciones por rasgo",
	},
	"prompt.scale4": {
		quiz.English:    "1 = not at all, 4 = very much",
		quiz.Portuguese: "1 = nada, 4 = muito",
		quiz.Spanish:    "1 = nada, 4 = mucho",
	},
	"prompt.scale5": {
		quiz.English:    "1 = strongly disagree, 5 = strongly agree",
		quiz.Portuguese: "1 = discordo totalmente, 5 = concordo totalmente",
		quiz.Spanish:    "1 = totalmente en desacuerdo, 5 = totalmente de acuerdo",
	},
	"prompt.choice": {
		quiz.English: "Choose A or B", quiz.Portuguese: "Escolha A ou B", quiz.Spanish: "Elige A o B",
	},
	MsgErrorGeneric: {
		quiz.English:    "Something went wrong. Please try again.",
		quiz.Portuguese: "Algo deu errado. Tente novamente.",
		quiz.Spanish:    "Algo salió mal. Inténtalo de nuevo.",
	},
	MsgErrorInvalidData: {
		quiz.English:    "The test data is invalid and the result cannot be shown.",
		quiz.Portuguese: "Os dados do teste são inválidos e o resultado não pode ser exibido.",
		quiz.Spanish:    "Los datos de la prueba no son válidos y no se puede mostrar el resultado.",
	},
	MsgResumed: {
		quiz.English:    "Resuming where you left off.",
		quiz.Portuguese: "Retomando de onde você parou.",
		quiz.Spanish:    "Continuando donde lo dejaste.",
	},
	MsgRestarted: {
		quiz.English:    "Your saved progress expired. Starting over.",
		quiz.Portuguese: "Seu progresso salvo expirou. Recomeçando.",
		quiz.Spanish:    "Tu progreso guardado expiró. Empezando de nuevo.",
	},
	MsgCompleted: {
		quiz.English: "Test completed!", quiz.Portuguese: "Teste concluído!", quiz.Spanish: "¡Prueba completada!",
	},
	MsgProfile: {
		quiz.English: "Profile", quiz.Portuguese: "Perfil", quiz.Spanish: "Perfil",
	},
	MsgFactor: {
		quiz.English: "Factor", quiz.Portuguese: "Fator", quiz.Spanish: "Factor",
	},
	MsgScore: {
		quiz.English: "Score", quiz.Portuguese: "Pontuação", quiz.Spanish: "Puntuación",
	},
	MsgMax: {
		quiz.English: "Max", quiz.Portuguese: "Máx.", quiz.Spanish: "Máx.",
	},
	MsgPercent: {
		quiz.English: "%", quiz.Portuguese: "%", quiz.Spanish: "%",
	},
	MsgCompletedAt: {
		quiz.English: "Completed at", quiz.Portuguese: "Concluído em", quiz.Spanish: "Completado el",
	},
	MsgProgress: {
		quiz.English: "Question", quiz.Portuguese: "Pergunta", quiz.Spanish: "Pregunta",
	},
}

var factorNames = map[quiz.TestType]map[quiz.Factor]quiz.LocalizedText{
	quiz.TestDISC: {
		"D": {quiz.English: "Dominance", quiz.Portuguese: "Dominância", quiz.Spanish: "Dominancia"},
		"I": {quiz.English: "Influence", quiz.Portuguese: "Influência", quiz.Spanish: "Influencia"},
		"S": {quiz.English: "Steadiness", quiz.Portuguese: "Estabilidade", quiz.Spanish: "Estabilidad"},
		"C": {quiz.English: "Conscientiousness", quiz.Portuguese: "Conformidade", quiz.Spanish: "Cumplimiento"},
	},
	quiz.TestMBTI: {
		"E": {quiz.English: "Extraversion", quiz.Portuguese: "Extroversão", quiz.Spanish: "Extraversión"},
		"I": {quiz.English: "Introversion", quiz.Portuguese: "Introversão", quiz.Spanish: "Introversión"},
		"S": {quiz.English: "Sensing", quiz.Portuguese: "Sensação", quiz.Spanish: "Sensación"},
		"N": {quiz.English: "Intuition", quiz.Portuguese: "Intuição", quiz.Spanish: "Intuición"},
		"T": {quiz.English: "Thinking", quiz.Portuguese: "Pensamento", quiz.Spanish: "Pensamiento"},
		"F": {quiz.English: "Feeling", quiz.Portuguese: "Sentimento", quiz.Spanish: "Sentimiento"},
		"J": {quiz.English: "Judging", quiz.Portuguese: "Julgamento", quiz.Spanish: "Juicio"},
		"P": {quiz.English: "Perceiving", quiz.Portuguese: "Percepção", quiz.Spanish: "Percepción"},
	},
	quiz.TestBigFive: {
		"O": {quiz.English: "Openness", quiz.Portuguese: "Abertura", quiz.Spanish: "Apertura"},
		"C": {quiz.English: "Conscientiousness", quiz.Portuguese: "Conscienciosidade", quiz.Spanish: "Responsabilidad"},
		"E": {quiz.English: "Extraversion", quiz.Portuguese: "Extroversão", quiz.Spanish: "Extraversión"},
		"A": {quiz.English: "Agreeableness", quiz.Portuguese: "Amabilidade", quiz.Spanish: "Amabilidad"},
		"N": {quiz.English: "Neuroticism", quiz.Portuguese: "Neuroticismo", quiz.Spanish: "Neuroticismo"},
	},
}

// Message returns the localized UI string for key, or key itself when unknown.
func Message(lang quiz.Language, key string) string {
	if t, ok := messages[key]; ok {
		return t.In(lang)
	}
	return key
}

// FactorName returns the localized name of factor f in test t.
func FactorName(t quiz.TestType, f quiz.Factor, lang quiz.Language) string {
	if names, ok := factorNames[t]; ok {
		if n, ok := names[f]; ok {
			return n.In(lang)
		}
	}
	return string(f)
}

// UserMessage maps an error to the generic localized text shown to a
// participant. Invalid test data gets its own message; everything else is
// generic.
func UserMessage(lang quiz.Language, err error) string {
	if errors.IsCode(err, errors.ErrCodeInvalidTestData) {
		return Message(lang, MsgErrorInvalidData)
	}
	return Message(lang, MsgErrorGeneric)
}
