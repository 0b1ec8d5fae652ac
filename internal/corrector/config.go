package corrector

type CorrectorConfig struct {
	SpellerSuggestions int  // speller candidates shown in the banner
	UserSuggestions    int  // user dictionary candidates shown in the banner, 0 = all within range
	CheckSuggestions   int  // candidates attached to each misspelling by CheckText
	FilterShortWords   bool // CheckText skips words of MinWordLength runes or fewer
	MinWordLength      int
}

// DefaultConfig matches the keyboard banner: three speller suggestions after
// whatever the user dictionary offers.
func DefaultConfig() CorrectorConfig {
	return CorrectorConfig{
		SpellerSuggestions: 3,
		UserSuggestions:    0,
		CheckSuggestions:   5,
		FilterShortWords:   false,
		MinWordLength:      1,
	}
}

type Source string

const (
	SourceTyped   Source = "typed"
	SourceUser    Source = "user"
	SourceSpeller Source = "speller"
)

type BannerItem struct {
	Title  string `json:"title"`
	Value  string `json:"value"`
	Source Source `json:"source"`
}

type Misspelling struct {
	Word        string   `json:"word"`
	Start       int      `json:"start"`
	End         int      `json:"end"`
	Suggestions []string `json:"suggestions"`
}

type CheckResult struct {
	Original     string        `json:"original"`
	Corrected    string        `json:"corrected"`
	Words        int           `json:"words"`
	Misspellings []Misspelling `json:"misspellings"`
}
