// Package wire converts between domain values and the JSON types of
// pkg/types/quiz.
package wire

import (
	"time"

	"github.com/turtacn/PersonaQuiz/internal/domain/catalog"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/domain/scoring"
	dto "github.com/turtacn/PersonaQuiz/pkg/types/quiz"
)

func textToDTO(t quiz.LocalizedText) map[string]string {
	if len(t) == 0 {
		return nil
	}
	out := make(map[string]string, len(t))
	for l, s := range t {
		out[string(l)] = s
	}
	return out
}

func textFromDTO(t map[string]string) quiz.LocalizedText {
	if len(t) == 0 {
		return nil
	}
	out := make(quiz.LocalizedText, len(t))
	for l, s := range t {
		out[quiz.Language(l)] = s
	}
	return out
}

func QuestionToDTO(q quiz.Question) dto.Question {
	out := dto.Question{
		ID:       q.ID,
		Position: q.Position,
		Factor:   string(q.Factor),
		Reverse:  q.Reverse,
		Text:     textToDTO(q.Text),
	}
	for _, o := range q.Options {
		out.Options = append(out.Options, dto.Option{Factor: string(o.Factor), Text: textToDTO(o.Text)})
	}
	return out
}

func QuestionFromDTO(q dto.Question) quiz.Question {
	out := quiz.Question{
		ID:       q.ID,
		Position: q.Position,
		Factor:   quiz.Factor(q.Factor),
		Reverse:  q.Reverse,
		Text:     textFromDTO(q.Text),
	}
	for _, o := range q.Options {
		out.Options = append(out.Options, quiz.Option{Factor: quiz.Factor(o.Factor), Text: textFromDTO(o.Text)})
	}
	return out
}

func QuestionsToDTO(qs []quiz.Question) []dto.Question {
	out := make([]dto.Question, len(qs))
	for i, q := range qs {
		out[i] = QuestionToDTO(q)
	}
	return out
}

func QuestionsFromDTO(qs []dto.Question) []quiz.Question {
	out := make([]quiz.Question, len(qs))
	for i, q := range qs {
		out[i] = QuestionFromDTO(q)
	}
	return out
}

func answersToDTO(as []quiz.Answer) []dto.Answer {
	out := make([]dto.Answer, len(as))
	for i, a := range as {
		out[i] = dto.Answer{QuestionID: a.QuestionID, Factor: string(a.Factor), Rating: a.Rating}
	}
	return out
}

func answersFromDTO(as []dto.Answer) []quiz.Answer {
	out := make([]quiz.Answer, len(as))
	for i, a := range as {
		out[i] = quiz.Answer{QuestionID: a.QuestionID, Factor: quiz.Factor(a.Factor), Rating: a.Rating}
	}
	return out
}

func ScoresToDTO(v quiz.ScoreVector) map[string]int {
	out := make(map[string]int, len(v))
	for f, n := range v {
		out[string(f)] = n
	}
	return out
}

func ScoresFromDTO(v map[string]int) quiz.ScoreVector {
	out := make(quiz.ScoreVector, len(v))
	for f, n := range v {
		out[quiz.Factor(f)] = n
	}
	return out
}

// ProgressRequest builds the save-progress body from a snapshot.
func ProgressRequest(s quiz.ProgressSnapshot) *dto.SaveProgressRequest {
	return &dto.SaveProgressRequest{
		SessionID:       s.SessionID,
		TestID:          string(s.TestType),
		CurrentQuestion: s.Index,
		Answers:         answersToDTO(s.Answers),
		Scores:          ScoresToDTO(s.Scores),
		Language:        string(s.Language),
		Timestamp:       s.Timestamp,
	}
}

// SnapshotFromRequest rebuilds a snapshot; a missing timestamp is stamped with now.
func SnapshotFromRequest(r *dto.SaveProgressRequest, lang quiz.Language, now time.Time) quiz.ProgressSnapshot {
	ts := r.Timestamp
	if ts <= 0 {
		ts = now.UnixMilli()
	}
	return quiz.ProgressSnapshot{
		SessionID: r.SessionID,
		TestType:  quiz.TestType(r.TestID),
		Language:  lang,
		Index:     r.CurrentQuestion,
		Scores:    ScoresFromDTO(r.Scores),
		Answers:   answersFromDTO(r.Answers),
		Timestamp: ts,
	}
}

// ResultRequest builds the save-result body from a result.
func ResultRequest(r quiz.Result) *dto.SaveResultRequest {
	return &dto.SaveResultRequest{
		SessionID:  r.SessionID,
		TestID:     string(r.TestType),
		Scores:     ScoresToDTO(r.Scores),
		ProfileKey: r.ProfileKey,
		Language:   string(r.Language),
		Timestamp:  r.Timestamp,
	}
}

// ResultToDTO renders a result for lang, including localized factor and
// profile names. An uncatalogued profile key is invalid test data.
func ResultToDTO(r quiz.Result, lang quiz.Language) (dto.Result, error) {
	out := dto.Result{
		SessionID:   r.SessionID,
		TestID:      string(r.TestType),
		Language:    string(r.Language),
		Scores:      ScoresToDTO(r.Scores),
		ProfileKey:  r.ProfileKey,
		CompletedAt: r.CompletedAt.UTC().Format(time.RFC3339),
		Timestamp:   r.Timestamp,
	}
	for _, m := range r.Magnitudes {
		out.Magnitudes = append(out.Magnitudes, dto.FactorScore{
			Factor:  string(m.Factor),
			Name:    catalog.FactorName(r.TestType, m.Factor, lang),
			Score:   m.Score,
			Max:     m.Max,
			Percent: m.Percent(),
		})
	}
	if r.HasProfile() {
		p, err := scoring.LookupProfile(r.TestType, r.ProfileKey)
		if err != nil {
			return dto.Result{}, err
		}
		out.ProfileName = p.Name.In(lang)
		out.ProfileSummary = p.Summary.In(lang)
	}
	return out, nil
}

// ResultFromDTO parses a served result.
func ResultFromDTO(r dto.Result) quiz.Result {
	out := quiz.Result{
		SessionID:  r.SessionID,
		TestType:   quiz.TestType(r.TestID),
		Language:   quiz.Language(r.Language),
		Scores:     ScoresFromDTO(r.Scores),
		ProfileKey: r.ProfileKey,
		Timestamp:  r.Timestamp,
	}
	if t, err := time.Parse(time.RFC3339, r.CompletedAt); err == nil {
		out.CompletedAt = t
	}
	for _, m := range r.Magnitudes {
		out.Magnitudes = append(out.Magnitudes, quiz.FactorScore{Factor: quiz.Factor(m.Factor), Score: m.Score, Max: m.Max})
	}
	return out
}
