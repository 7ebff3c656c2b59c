// Package classifier turns a vision model's free-text answer into one of the
// seven activity categories.
//
// Resolution happens in two stages. A leading numeral (the prompt asks the
// model to answer with the number first) wins, except that a phone verdict is
// downgraded to Working when the text says the phone is not in hand. Without a
// usable numeral, an ordered keyword rule table decides. All matching is
// case-insensitive substring matching.
package classifier

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/menta2k/trackmate/pkg/types"
)

// Rule names reported alongside the category
const (
	RuleNumeral         = "numeral"
	RuleNumeralOverride = "numeral-override"
	RulePhoneAndWork    = "phone+work"
	RulePhone           = "phone"
	RuleWork            = "work"
	RuleSleep           = "sleep"
	RuleEat             = "eat"
	RuleDrink           = "drink"
	RuleDefault         = "default"
)

// Keyword sets. Order inside a set does not matter.
var (
	// NumeralDisclaimers override a leading 1 or 3 to Working.
	NumeralDisclaimers = []string{
		"not holding phone",
		"phone on desk",
		"phone on table",
		"hands on keyboard",
		"hands are on keyboard",
		"both hands on keyboard",
	}

	WorkKeywords = []string{"computer", "laptop", "desk", "keyboard", "monitor", "screen"}

	PhoneInHandPhrases = []string{
		"holding phone",
		"phone in hand",
		"gripping phone",
		"using phone",
		"phone in their hand",
		"hand holding phone",
		"texting",
		"phone to ear",
		"looking at phone",
	}

	// PhoneNegations suppress the phone-in-hand signal in keyword scoring.
	PhoneNegations = []string{
		"not holding",
		"phone on desk",
		"phone on table",
		"phone sits",
		"phone placed",
		"both hands on keyboard",
	}

	SleepKeywords = []string{"sleep", "resting", "eyes closed"}
	EatKeywords   = []string{"eat", "food"}
	DrinkKeywords = []string{"drink", "cup", "coffee"}
)

var leadingNumeral = regexp.MustCompile(`^\s*(\d+)`)

// Signals are the facts extracted from a lowercased response
type Signals struct {
	Text        string
	Work        bool
	PhoneInHand bool
}

// Rule maps a predicate over the extracted signals to a category
type Rule struct {
	Name     string
	Category types.Category
	Match    func(s Signals) bool
}

// DefaultRules is the keyword stage in priority order
func DefaultRules() []Rule {
	return []Rule{
		{Name: RulePhoneAndWork, Category: types.CategoryPhoneAndWork, Match: func(s Signals) bool { return s.PhoneInHand && s.Work }},
		{Name: RulePhone, Category: types.CategoryPhone, Match: func(s Signals) bool { return s.PhoneInHand }},
		{Name: RuleWork, Category: types.CategoryWorking, Match: func(s Signals) bool { return s.Work }},
		{Name: RuleSleep, Category: types.CategorySleeping, Match: containsAnyRule(SleepKeywords)},
		{Name: RuleEat, Category: types.CategoryEating, Match: containsAnyRule(EatKeywords)},
		{Name: RuleDrink, Category: types.CategoryDrinking, Match: containsAnyRule(DrinkKeywords)},
	}
}

// Classifier resolves model output to a category
type Classifier struct {
	rules []Rule
}

// New creates a classifier with the default rule table
func New() *Classifier {
	return &Classifier{rules: DefaultRules()}
}

// NewWithRules creates a classifier with a custom keyword stage
func NewWithRules(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Decision is a resolved category plus the rule that produced it
type Decision struct {
	Category types.Category
	Rule     string
}

// Classify resolves text to exactly one category. It never returns a code
// outside 1..7.
func (c *Classifier) Classify(text string) Decision {
	lower := strings.ToLower(text)

	if d, ok := classifyNumeral(text, lower); ok {
		return d
	}

	s := ExtractSignals(lower)
	for _, r := range c.rules {
		if r.Match(s) {
			return Decision{Category: r.Category, Rule: r.Name}
		}
	}
	return Decision{Category: types.CategoryOther, Rule: RuleDefault}
}

// ExtractSignals computes the work and phone-in-hand signals of a lowercased text
func ExtractSignals(lower string) Signals {
	phone := containsAny(lower, PhoneInHandPhrases)
	if containsAny(lower, PhoneNegations) {
		phone = false
	}
	return Signals{
		Text:        lower,
		Work:        containsAny(lower, WorkKeywords),
		PhoneInHand: phone,
	}
}

func classifyNumeral(text, lower string) (Decision, bool) {
	m := leadingNumeral.FindStringSubmatch(text)
	if m == nil {
		return Decision{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return Decision{}, false
	}
	c := types.Category(n)

	// only ever moves 1 or 3 toward 2
	if (c == types.CategoryPhone || c == types.CategoryPhoneAndWork) && containsAny(lower, NumeralDisclaimers) {
		return Decision{Category: types.CategoryWorking, Rule: RuleNumeralOverride}, true
	}
	if !c.Valid() {
		return Decision{}, false
	}
	return Decision{Category: c, Rule: RuleNumeral}, true
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func containsAnyRule(needles []string) func(Signals) bool {
	return func(s Signals) bool { return containsAny(s.Text, needles) }
}
