// Package rulestore loads the accounting rule definitions and serves them
// as immutable snapshots. The store is initialized once at process start;
// reload is an explicit operation that parses a fresh snapshot and swaps
// it atomically, so concurrent pipeline runs never observe a partial
// reload.
package rulestore

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/iho/journalbot/internal/domain"
)

// ruleFile is the YAML schema of the rule source.
type ruleFile struct {
	Rules []domain.AccountingRule `yaml:"rules"`
}

// Snapshot is an immutable view of the rule set plus derived indexes.
type Snapshot struct {
	rules     map[string]*domain.AccountingRule
	ordered   []*domain.AccountingRule // sorted by id
	byKeyword map[string][]string      // keyword -> sorted rule ids
	idf       map[string]float64
	catVocab  map[domain.Category][]string // distinct keywords per category, sorted
	accounts  map[string]string            // account code -> name, from templates
}

// Parse builds a snapshot from raw YAML rule definitions.
func Parse(data []byte) (*Snapshot, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRuleParse, err)
	}

	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("%w: rule source defines no rules", domain.ErrRuleParse)
	}

	snap := &Snapshot{
		rules:     make(map[string]*domain.AccountingRule, len(file.Rules)),
		byKeyword: make(map[string][]string),
		idf:       make(map[string]float64),
		catVocab:  make(map[domain.Category][]string),
		accounts:  make(map[string]string),
	}

	for i := range file.Rules {
		rule := &file.Rules[i]

		if err := rule.Validate(); err != nil {
			return nil, err
		}

		if _, dup := snap.rules[rule.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate rule id %s", domain.ErrRuleParse, rule.ID)
		}

		snap.rules[rule.ID] = rule
		snap.ordered = append(snap.ordered, rule)

		for _, line := range rule.Lines {
			snap.accounts[line.AccountCode] = line.AccountName
		}
	}

	sort.Slice(snap.ordered, func(i, j int) bool {
		return snap.ordered[i].ID < snap.ordered[j].ID
	})

	snap.buildIndexes()

	return snap, nil
}

func (s *Snapshot) buildIndexes() {
	catSets := make(map[domain.Category]map[string]bool)

	for _, rule := range s.ordered {
		seen := make(map[string]bool)

		for _, kw := range rule.Keywords {
			kw = NormalizeKeyword(kw)
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true

			s.byKeyword[kw] = append(s.byKeyword[kw], rule.ID)

			if catSets[rule.Category] == nil {
				catSets[rule.Category] = make(map[string]bool)
			}
			catSets[rule.Category][kw] = true
		}
	}

	// Inverse document frequency over the rule corpus: rarer keywords
	// weigh more.
	n := float64(len(s.ordered))
	for kw, ids := range s.byKeyword {
		sort.Strings(ids)
		s.idf[kw] = 1 + math.Log(n/float64(len(ids)))
	}

	for cat, set := range catSets {
		vocab := make([]string, 0, len(set))
		for kw := range set {
			vocab = append(vocab, kw)
		}
		sort.Strings(vocab)
		s.catVocab[cat] = vocab
	}
}

// Rule returns the rule with the given id.
func (s *Snapshot) Rule(id string) (*domain.AccountingRule, error) {
	rule, ok := s.rules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRuleNotFound, id)
	}

	return rule, nil
}

// Rules returns all rules sorted by id.
func (s *Snapshot) Rules() []*domain.AccountingRule {
	return s.ordered
}

// Len returns the number of rules.
func (s *Snapshot) Len() int {
	return len(s.ordered)
}

// LookupByKeyword returns the ids of rules carrying the keyword.
func (s *Snapshot) LookupByKeyword(keyword string) []string {
	return s.byKeyword[NormalizeKeyword(keyword)]
}

// IDF returns the specificity weight of a vocabulary keyword, 0 for
// unknown keywords.
func (s *Snapshot) IDF(keyword string) float64 {
	return s.idf[NormalizeKeyword(keyword)]
}

// CategoryVocabulary returns the distinct keywords of a category's rules.
func (s *Snapshot) CategoryVocabulary(cat domain.Category) []string {
	return s.catVocab[cat]
}

// HasAccount reports whether any rule template references the account code.
func (s *Snapshot) HasAccount(code string) bool {
	_, ok := s.accounts[code]
	return ok
}

// MatchKeywords returns the vocabulary keywords found in text, sorted.
// A keyword matches when it equals a whitespace/punctuation-delimited
// token of the text, or when it is contained in the text as a substring;
// both are case- and whitespace-insensitive. Substring containment is
// what makes this work for CJK descriptions, which carry no token
// boundaries.
func (s *Snapshot) MatchKeywords(text string) []string {
	normalized := NormalizeKeyword(text)
	if normalized == "" {
		return nil
	}

	tokens := make(map[string]bool)
	for _, tok := range Tokenize(text) {
		tokens[tok] = true
	}

	var matched []string
	for kw := range s.idf {
		if tokens[kw] || strings.Contains(normalized, kw) {
			matched = append(matched, kw)
		}
	}

	sort.Strings(matched)

	return matched
}

// NormalizeKeyword lowercases and strips all whitespace.
func NormalizeKeyword(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// Tokenize splits text on anything that is not a letter or digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Store holds the current snapshot and supports explicit reload.
type Store struct {
	path    string
	current atomic.Pointer[Snapshot]
}

// Load reads and parses the rule source at path.
func Load(path string) (*Store, error) {
	store := &Store{path: path}
	if err := store.Reload(); err != nil {
		return nil, err
	}

	return store, nil
}

// Snapshot returns the current immutable snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Reload parses the rule source again and swaps the snapshot atomically.
// In-flight runs keep the snapshot they started with.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRuleParse, err)
	}

	snap, err := Parse(data)
	if err != nil {
		return err
	}

	s.current.Store(snap)

	return nil
}
