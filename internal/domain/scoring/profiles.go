package scoring

import (
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

// Profile describes a derived profile/type key.
type Profile struct {
	Key     string
	Name    quiz.LocalizedText
	Summary quiz.LocalizedText
}

// LookupProfile returns the catalogued profile for key. A key that is not
// catalogued is invalid test data: callers must abort rendering rather than
// guess a description.
func LookupProfile(t quiz.TestType, key string) (Profile, error) {
	table, ok := profiles[t]
	if !ok {
		return Profile{}, errors.New(errors.ErrCodeInvalidTestData, "test type has no profile catalog").
			WithDetail("test=" + string(t))
	}
	p, ok := table[key]
	if !ok {
		return Profile{}, errors.New(errors.ErrCodeInvalidTestData, "profile key not in catalog").
			WithDetail("test=" + string(t) + " key=" + key).
			WithCause(errors.New(errors.ErrCodeUnknownProfile, "unknown profile"))
	}
	return p, nil
}

// ProfileKeys returns the catalogued keys of t.
func ProfileKeys(t quiz.TestType) []string {
	table := profiles[t]
	out := make([]string, 0, len(table))
	for k := range table {
		out = append(out, k)
	}
	return out
}

func profile(key, en, pt, es, sumEN, sumPT, sumES string) Profile {
	return Profile{
		Key:     key,
		Name:    quiz.LocalizedText{quiz.English: en, quiz.Portuguese: pt, quiz.Spanish: es},
		Summary: quiz.LocalizedText{quiz.English: sumEN, quiz.Portuguese: sumPT, quiz.Spanish: sumES},
	}
}

func index(ps ...Profile) map[string]Profile {
	out := make(map[string]Profile, len(ps))
	for _, p := range ps {
		out[p.Key] = p
	}
	return out
}

var profiles = map[quiz.TestType]map[string]Profile{
	quiz.TestDISC: index(
		profile("D", "Dominance", "Dominância", "Dominancia",
			"Direct, decisive and results-driven. You take charge and move fast.",
			"Direto, decidido e focado em resultados. Você assume o comando e age rápido.",
			"Directo, decidido y orientado a resultados. Tomas el mando y actúas rápido."),
		profile("I", "Influence", "Influência", "Influencia",
			"Outgoing, enthusiastic and persuasive. You energise the people around you.",
			"Extrovertido, entusiasmado e persuasivo. Você energiza as pessoas ao redor.",
			"Extrovertido, entusiasta y persuasivo. Das energía a quienes te rodean."),
		profile("S", "Steadiness", "Estabilidade", "Estabilidad",
			"Patient, loyal and supportive. You value harmony and consistency.",
			"Paciente, leal e solidário. Você valoriza harmonia e constância.",
			"Paciente, leal y solidario. Valoras la armonía y la constancia."),
		profile("C", "Conscientiousness", "Conformidade", "Cumplimiento",
			"Analytical, precise and quality-focused. You rely on facts and standards.",
			"Analítico, preciso e focado em qualidade. Você confia em fatos e padrões.",
			"Analítico, preciso y enfocado en la calidad. Confías en hechos y normas."),
		profile("DI", "Initiator", "Iniciador", "Iniciador",
			"Bold and persuasive: you drive results by rallying others.",
			"Ousado e persuasivo: você gera resultados mobilizando os outros.",
			"Audaz y persuasivo: logras resultados movilizando a otros."),
		profile("DS", "Achiever", "Realizador", "Realizador",
			"Determined and dependable: you push hard while keeping things steady.",
			"Determinado e confiável: você se empenha mantendo a estabilidade.",
			"Determinado y confiable: te esfuerzas manteniendo la estabilidad."),
		profile("DC", "Challenger", "Desafiador", "Retador",
			"Driven and exacting: you pursue results through rigorous standards.",
			"Motivado e exigente: você busca resultados com padrões rigorosos.",
			"Motivado y exigente: buscas resultados con estándares rigurosos."),
		profile("ID", "Persuader", "Persuasor", "Persuasor",
			"Charismatic and assertive: you inspire people toward bold goals.",
			"Carismático e assertivo: você inspira pessoas rumo a metas ousadas.",
			"Carismático y asertivo: inspiras a las personas hacia metas audaces."),
		profile("IS", "Counselor", "Conselheiro", "Consejero",
			"Warm and encouraging: you build trust and bring people together.",
			"Caloroso e encorajador: você cria confiança e aproxima as pessoas.",
			"Cálido y alentador: generas confianza y unes a las personas."),
		profile("IC", "Appraiser", "Avaliador", "Evaluador",
			"Expressive yet careful: you pair enthusiasm with sound judgement.",
			"Expressivo porém cuidadoso: você une entusiasmo e bom julgamento.",
			"Expresivo pero cuidadoso: combinas entusiasmo con buen juicio."),
		profile("SD", "Investigator", "Investigador", "Investigador",
			"Persistent and calm: you follow through with quiet determination.",
			"Persistente e calmo: você conclui o que começa com determinação serena.",
			"Persistente y sereno: terminas lo que empiezas con determinación tranquila."),
		profile("SI", "Harmonizer", "Harmonizador", "Armonizador",
			"Supportive and friendly: you keep teams connected and at ease.",
			"Solidário e amigável: você mantém as equipes unidas e tranquilas.",
			"Solidario y amistoso: mantienes a los equipos unidos y tranquilos."),
		profile("SC", "Specialist", "Especialista", "Especialista",
			"Reliable and methodical: you deliver consistent, careful work.",
			"Confiável e metódico: você entrega trabalho consistente e cuidadoso.",
			"Confiable y metódico: entregas un trabajo constante y cuidadoso."),
		profile("CD", "Perfectionist", "Perfeccionista", "Perfeccionista",
			"Exacting and decisive: you hold yourself and others to high standards.",
			"Exigente e decidido: você mantém padrões altos para si e para os outros.",
			"Exigente y decidido: mantienes estándares altos para ti y para otros."),
		profile("CI", "Assessor", "Assessor", "Asesor",
			"Precise and personable: you explain complex ideas clearly.",
			"Preciso e sociável: você explica ideias complexas com clareza.",
			"Preciso y sociable: explicas ideas complejas con claridad."),
		profile("CS", "Analyst", "Analista", "Analista",
			"Careful and steady: you value accuracy, order and predictability.",
			"Cuidadoso e estável: você valoriza precisão, ordem e previsibilidade.",
			"Cuidadoso y estable: valoras la precisión, el orden y la previsibilidad."),
	),
	quiz.TestMBTI: index(
		profile("ISTJ", "Inspector", "Inspetor", "Inspector",
			"Responsible and thorough, guided by facts and duty.",
			"Responsável e minucioso, guiado por fatos e dever.",
			"Responsable y minucioso, guiado por hechos y deber."),
		profile("ISFJ", "Protector", "Protetor", "Protector",
			"Warm and conscientious, devoted to caring for others.",
			"Caloroso e consciencioso, dedicado a cuidar dos outros.",
			"Cálido y concienzudo, dedicado a cuidar de los demás."),
		profile("INFJ", "Counselor", "Conselheiro", "Consejero",
			"Insightful and principled, driven by a quiet vision.",
			"Perspicaz e íntegro, movido por uma visão silenciosa.",
			"Perspicaz e íntegro, movido por una visión silenciosa."),
		profile("INTJ", "Mastermind", "Estrategista", "Estratega",
			"Strategic and independent, always refining a long-term plan.",
			"Estratégico e independente, sempre aprimorando um plano de longo prazo.",
			"Estratégico e independiente, siempre afinando un plan a largo plazo."),
		profile("ISTP", "Craftsman", "Artesão", "Artesano",
			"Practical and observant, at home solving hands-on problems.",
			"Prático e observador, à vontade resolvendo problemas concretos.",
			"Práctico y observador, cómodo resolviendo problemas concretos."),
		profile("ISFP", "Composer", "Compositor", "Compositor",
			"Gentle and sensitive, expressing values through action.",
			"Gentil e sensível, expressa seus valores por meio de ações.",
			"Amable y sensible, expresa sus valores mediante la acción."),
		profile("INFP", "Healer", "Curador", "Sanador",
			"Idealistic and empathetic, seeking meaning and authenticity.",
			"Idealista e empático, em busca de significado e autenticidade.",
			"Idealista y empático, en busca de sentido y autenticidad."),
		profile("INTP", "Architect", "Arquiteto", "Arquitecto",
			"Analytical and curious, building precise mental models.",
			"Analítico e curioso, constrói modelos mentais precisos.",
			"Analítico y curioso, construye modelos mentales precisos."),
		profile("ESTP", "Promoter", "Promotor", "Promotor",
			"Energetic and pragmatic, thriving on action and results.",
			"Enérgico e pragmático, prospera com ação e resultados.",
			"Enérgico y pragmático, prospera con acción y resultados."),
		profile("ESFP", "Performer", "Animador", "Animador",
			"Spontaneous and lively, bringing fun to every moment.",
			"Espontâneo e animado, leva diversão a cada momento.",
			"Espontáneo y animado, aporta diversión a cada momento."),
		profile("ENFP", "Champion", "Inspirador", "Inspirador",
			"Enthusiastic and imaginative, inspiring possibilities in others.",
			"Entusiasmado e imaginativo, desperta possibilidades nos outros.",
			"Entusiasta e imaginativo, despierta posibilidades en los demás."),
		profile("ENTP", "Inventor", "Inventor", "Inventor",
			"Quick and inventive, energised by ideas and debate.",
			"Rápido e inventivo, energizado por ideias e debates.",
			"Rápido e inventivo, se energiza con ideas y debates."),
		profile("ESTJ", "Supervisor", "Supervisor", "Supervisor",
			"Organised and decisive, keeping structure and order.",
			"Organizado e decidido, mantém estrutura e ordem.",
			"Organizado y decidido, mantiene la estructura y el orden."),
		profile("ESFJ", "Provider", "Provedor", "Proveedor",
			"Sociable and caring, attentive to everyone's needs.",
			"Sociável e atencioso, atento às necessidades de todos.",
			"Sociable y atento, pendiente de las necesidades de todos."),
		profile("ENFJ", "Teacher", "Mentor", "Mentor",
			"Charismatic and empathetic, helping others grow.",
			"Carismático e empático, ajuda os outros a crescer.",
			"Carismático y empático, ayuda a otros a crecer."),
		profile("ENTJ", "Fieldmarshal", "Comandante", "Comandante",
			"Bold and strategic, leading people toward ambitious goals.",
			"Ousado e estratégico, lidera pessoas rumo a metas ambiciosas.",
			"Audaz y estratégico, lidera a las personas hacia metas ambiciosas."),
	),
}
