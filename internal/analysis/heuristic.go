package analysis

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/bizrank/review-service/internal/types"
)

// HeuristicModelVersion identifies tags produced by the local heuristic
const HeuristicModelVersion = "heuristic-v1"

// aspect is a named group of phrases signalling one review dimension
type aspect struct {
	name    string
	phrases []string
}

var (
	aspExcellence = aspect{"excellence", []string{"excellent", "outstanding", "amazing", "exceptional", "perfect", "fantastic", "superb", "incredible", "top notch", "first class"}}
	aspExceeded   = aspect{"exceeded_expectations", []string{"exceeded", "above and beyond", "beyond expectations", "extra mile", "surpassed", "more than expected"}}
	aspFirstFix   = aspect{"first_time_fix", []string{"first time", "first visit", "one visit", "single visit", "fixed it right away", "on the first try"}}
	aspNoCallback = aspect{"no_callbacks", []string{"no callback", "no call back", "no problems since", "no issues since", "still working", "hasn't failed since"}}
	aspDetail     = aspect{"attention_to_detail", []string{"detail", "thorough", "meticulous", "careful", "spotless", "tidy", "cleaned up", "neat"}}
	aspProf       = aspect{"professionalism", []string{"professional", "courteous", "polite", "respectful", "punctual", "on time", "friendly"}}
	aspComm       = aspect{"communication", []string{"explained", "communicat", "kept us informed", "kept me informed", "responsive", "answered", "clear quote", "updates"}}
	aspExpertise  = aspect{"expertise", []string{"knowledgeable", "expert", "skilled", "experienced", "knew exactly", "competent", "diagnosed"}}
	aspEmotion    = aspect{"emotional_impact", []string{"grateful", "thankful", "relieved", "peace of mind", "happy", "love", "lifesaver", "life saver"}}
	aspBizImpact  = aspect{"business_impact", []string{"saved us", "saved me", "downtime", "our business", "our office", "our shop", "money", "cost"}}
	aspRelation   = aspect{"relationship", []string{"again", "for years", "loyal", "regular", "go-to", "every time", "will use", "always use"}}
	aspCompare    = aspect{"comparison", []string{"better than", "compared to", "unlike", "other companies", "other contractors", "others quoted"}}
	aspMarket     = aspect{"market_position", []string{"best in", "in town", "in the area", "in the city", "number one", "#1"}}
	aspDiff       = aspect{"differentiation", []string{"only one", "unique", "stand out", "stands out", "unlike any", "the difference"}}
	aspSwitched   = aspect{"switched_provider", []string{"switched", "used to use", "previous company", "previous contractor", "our old", "changed to"}}
	aspSpeed      = aspect{"response_speed", []string{"quick", "fast", "prompt", "same day", "same-day", "within an hour", "immediately", "right away", "next day"}}
	aspValue      = aspect{"value", []string{"fair price", "reasonable", "affordable", "worth", "great value", "good value", "honest", "great price"}}
	aspResolve    = aspect{"problem_resolution", []string{"fixed", "solved", "resolved", "repaired", "sorted", "took care", "working again"}}
	aspRecommend  = aspect{"recommendation", []string{"recommend", "would use again", "tell everyone", "referred", "refer", "five stars", "5 stars"}}
	aspNegative   = aspect{"negative", []string{"terrible", "awful", "rude", "worst", "disappointed", "overcharged", "unprofessional", "poor", "never again", "not recommend", "avoid", "late", "broken again"}}
)

var positiveAspects = []aspect{
	aspExcellence, aspExceeded, aspFirstFix, aspNoCallback, aspDetail,
	aspProf, aspComm, aspExpertise, aspEmotion, aspBizImpact, aspRelation,
	aspCompare, aspMarket, aspDiff, aspSwitched, aspSpeed, aspValue,
	aspResolve, aspRecommend,
}

// concreteRe matches concrete detail: numbers, prices and durations
var concreteRe = regexp.MustCompile(`\d|\$|€|£|\b(minutes?|hours?|days?|weeks?|months?|years?)\b`)

var lowerCaser = cases.Lower(language.Und)

// Heuristic is the deterministic local strategy: keyword patterns plus
// rating magnitude
type Heuristic struct{}

// NewHeuristic creates the heuristic strategy
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Name implements Strategy
func (h *Heuristic) Name() string { return "heuristic" }

// Analyze implements Strategy
func (h *Heuristic) Analyze(_ context.Context, in Input) (*types.AnalysisTags, error) {
	text := lowerCaser.String(norm.NFC.String(in.Text))
	text = strings.Join(strings.Fields(text), " ")

	hits := make(map[string][]string, len(positiveAspects)+1)
	for _, a := range append(positiveAspects, aspNegative) {
		if m := matchPhrases(text, a.phrases); len(m) > 0 {
			hits[a.name] = m
		}
	}

	rating := in.Rating
	if rating <= 0 {
		rating = 3
	}
	rating = math.Min(rating, 5)
	ratingNorm := (rating - 1) / 4 // 0..1
	base := ratingNorm * 10
	neg := len(hits[aspNegative.name])

	score := func(a aspect) float64 {
		n := len(hits[a.name])
		s := base * 0.6
		if n > 0 {
			s = base*0.7 + 1.5*math.Min(float64(n), 2)
		}
		s -= 1.5 * math.Min(float64(neg), 3)
		return round1(clamp(s, 0, 10))
	}
	flag := func(a aspect) bool {
		return len(hits[a.name]) > 0 && rating >= 4
	}

	tags := &types.AnalysisTags{
		Quality: types.QualityIndicators{
			ExcellenceIntensity:  score(aspExcellence),
			ExceededExpectations: flag(aspExceeded),
			FirstTimeFix:         flag(aspFirstFix),
			NoCallbacksNeeded:    flag(aspNoCallback),
			AttentionToDetail:    score(aspDetail),
		},
		Service: types.ServiceExcellence{
			Professionalism: score(aspProf),
			Communication:   score(aspComm),
			Expertise:       score(aspExpertise),
		},
		CustomerExperience: types.CustomerExperience{
			EmotionalImpact:      score(aspEmotion),
			BusinessImpact:       score(aspBizImpact),
			RelationshipBuilding: score(aspRelation),
		},
		Competitive: types.CompetitiveMarkers{
			ComparedFavorably:      flag(aspCompare),
			MarketPosition:         flag(aspMarket),
			Differentiation:        flag(aspDiff),
			SwitchedFromCompetitor: flag(aspSwitched),
		},
		Performance: types.BusinessPerformance{
			ResponseSpeed:     score(aspSpeed),
			ValueDelivery:     score(aspValue),
			ProblemResolution: score(aspResolve),
		},
		Recommendation: types.Recommendation{
			AdvocacyScore:  score(aspRecommend),
			WouldRecommend: rating >= 4 && neg == 0,
		},
		ModelVersion: HeuristicModelVersion,
	}

	positive := 0
	topics := make([]string, 0, len(hits))
	keywords := make([]string, 0, 8)
	for _, a := range positiveAspects {
		if m := hits[a.name]; len(m) > 0 {
			positive += len(m)
			topics = append(topics, a.name)
			keywords = append(keywords, m...)
		}
	}
	if neg > 0 {
		topics = append(topics, aspNegative.name)
		keywords = append(keywords, hits[aspNegative.name]...)
	}
	sort.Strings(topics)

	overall := (ratingNorm*2-1)*0.7 + 0.05*math.Min(float64(positive), 6) - 0.1*math.Min(float64(neg), 5)
	tags.Sentiment.Overall = round2(clamp(overall, -1, 1))
	tags.Sentiment.Classification = types.ClassifySentiment(tags.Sentiment.Overall)
	if positive > 0 && neg > 0 && math.Abs(tags.Sentiment.Overall) < 0.5 {
		tags.Sentiment.Classification = types.SentimentMixed
	}

	tags.Keywords = keywords
	tags.Topics = topics
	tags.ConfidenceScore = heuristicConfidence(text, len(topics))
	return tags, nil
}

// heuristicConfidence grows with length, concrete detail and the number of
// aspects the review covers
func heuristicConfidence(text string, aspects int) float64 {
	words := len(strings.Fields(text))
	concrete := len(concreteRe.FindAllStringIndex(text, -1))

	c := 40.0
	c += math.Min(float64(words)/2, 25)
	c += math.Min(float64(concrete)*5, 15)
	c += math.Min(float64(aspects)*3, 20)
	return round1(clamp(c, 0, 100))
}

func matchPhrases(text string, phrases []string) []string {
	var out []string
	for _, p := range phrases {
		if strings.Contains(text, p) {
			out = append(out, p)
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
