package ranking

// WeightedTerm is a domain vocabulary entry. When the query mentions any vocabulary term,
// each term present in a chunk adds its Weight.
type WeightedTerm struct {
	Term   string  `yaml:"term"`
	Weight float64 `yaml:"weight"`
}

// LexicalConfig holds all configuration for the lexical passage scorer.
type LexicalConfig struct {
	// Page references ("page 7", "p. 7") in the query
	PageBonus float64 `yaml:"page_bonus"` // default: 10

	// Term overlap multipliers
	ExactPhraseBoost float64 `yaml:"exact_phrase_boost"` // default: 3
	KeywordBoost     float64 `yaml:"keyword_boost"`      // default: 2
	KeywordMinLength int     `yaml:"keyword_min_length"` // default: 3 (words must be longer)

	// Domain vocabulary
	Vocabulary []WeightedTerm `yaml:"vocabulary"`

	// Contextual pass, run when nothing scores at least ContextualThreshold
	ContextualThreshold float64  `yaml:"contextual_threshold"` // default: 1.0
	NumberBonus         float64  `yaml:"number_bonus"`         // default: 1.0
	ContextWords        []string `yaml:"context_words"`
	ContextWordBonus    float64  `yaml:"context_word_bonus"` // default: 0.5
	LongChunkLength     int      `yaml:"long_chunk_length"`  // default: 200
	LongChunkBonus      float64  `yaml:"long_chunk_bonus"`   // default: 0.1
}

// DefaultVocabulary returns the finance vocabulary the scorer ships with.
func DefaultVocabulary() []WeightedTerm {
	terms := []string{"investment", "stock", "market", "profit", "earnings", "investor", "capital", "dividend"}
	out := make([]WeightedTerm, len(terms))
	for i, t := range terms {
		out[i] = WeightedTerm{Term: t, Weight: 0.2}
	}
	return out
}

// DefaultContextWords returns the words that count in the contextual pass.
func DefaultContextWords() []string {
	return []string{"chapter", "section", "part", "page", "book", "author", "graham", "benjamin"}
}

// DefaultLexicalConfig returns the default lexical scoring configuration.
func DefaultLexicalConfig() *LexicalConfig {
	return &LexicalConfig{
		PageBonus: 10,

		ExactPhraseBoost: 3,
		KeywordBoost:     2,
		KeywordMinLength: 3,

		Vocabulary: DefaultVocabulary(),

		ContextualThreshold: 1.0,
		NumberBonus:         1.0,
		ContextWords:        DefaultContextWords(),
		ContextWordBonus:    0.5,
		LongChunkLength:     200,
		LongChunkBonus:      0.1,
	}
}

// ApplyDefaults fills in zero values with defaults. A nil Vocabulary or ContextWords gets the
// defaults; an explicitly empty list disables that boost.
func (c *LexicalConfig) ApplyDefaults() {
	defaults := DefaultLexicalConfig()

	if c.PageBonus == 0 {
		c.PageBonus = defaults.PageBonus
	}
	if c.ExactPhraseBoost == 0 {
		c.ExactPhraseBoost = defaults.ExactPhraseBoost
	}
	if c.KeywordBoost == 0 {
		c.KeywordBoost = defaults.KeywordBoost
	}
	if c.KeywordMinLength == 0 {
		c.KeywordMinLength = defaults.KeywordMinLength
	}
	if c.Vocabulary == nil {
		c.Vocabulary = defaults.Vocabulary
	}

	// Contextual pass
	if c.ContextualThreshold == 0 {
		c.ContextualThreshold = defaults.ContextualThreshold
	}
	if c.NumberBonus == 0 {
		c.NumberBonus = defaults.NumberBonus
	}
	if c.ContextWords == nil {
		c.ContextWords = defaults.ContextWords
	}
	if c.ContextWordBonus == 0 {
		c.ContextWordBonus = defaults.ContextWordBonus
	}
	if c.LongChunkLength == 0 {
		c.LongChunkLength = defaults.LongChunkLength
	}
	if c.LongChunkBonus == 0 {
		c.LongChunkBonus = defaults.LongChunkBonus
	}
}
