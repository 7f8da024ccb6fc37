package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/BurntSushi/toml"

	"clausewise/internal/model"
)

// CorpusEntry is one reference passage of consumer and contract law.
type CorpusEntry struct {
	ID      string `toml:"id" json:"id"`
	Title   string `toml:"title" json:"title"`
	Snippet string `toml:"snippet" json:"snippet"`
	Source  string `toml:"source" json:"source"`
	Link    string `toml:"link" json:"link"`
}

func (e CorpusEntry) chunk() Chunk {
	return Chunk{
		ID:       e.ID,
		Text:     e.Title + "\n" + e.Snippet,
		Citation: fmt.Sprintf("%s (%s)", e.Title, e.Source),
	}
}

var builtinCorpus = []CorpusEntry{
	{
		ID:      "tenant-security-deposits",
		Title:   "Tenant Rights - Security Deposits",
		Snippet: "Landlords must return security deposits within 30 days of lease termination, minus legitimate deductions for damages beyond normal wear and tear.",
		Source:  "State Housing Law",
		Link:    "https://example.gov/tenant-rights#security-deposits",
	},
	{
		ID:      "contract-termination",
		Title:   "Contract Termination Rights",
		Snippet: "Parties may terminate contracts early only if specific conditions are met, including material breach or mutual agreement. Early termination fees must be reasonable.",
		Source:  "Contract Law Statute",
		Link:    "https://example.gov/contract-law#termination",
	},
	{
		ID:      "limitation-of-liability",
		Title:   "Limitation of Liability Clauses",
		Snippet: "Courts may void limitation of liability clauses that are unconscionable or attempt to limit liability for gross negligence or willful misconduct.",
		Source:  "Civil Code Section 1668",
		Link:    "https://example.gov/contract-law#liability",
	},
	{
		ID:      "data-privacy",
		Title:   "Data Privacy Requirements",
		Snippet: "Companies must obtain explicit consent before collecting personal data and provide clear notice of data usage practices.",
		Source:  "Privacy Protection Act",
		Link:    "https://example.gov/privacy-law",
	},
	{
		ID:      "employment-non-compete",
		Title:   "Employment Contract Standards",
		Snippet: "Non-compete clauses must be reasonable in scope, duration, and geographic area to be enforceable. They cannot prevent reasonable employment opportunities.",
		Source:  "Labor Code",
		Link:    "https://example.gov/employment-law#non-compete",
	},
}

// BuiltinCorpus returns the reference passages shipped with the service.
func BuiltinCorpus() []CorpusEntry {
	out := make([]CorpusEntry, len(builtinCorpus))
	copy(out, builtinCorpus)
	return out
}

type corpusFile struct {
	Entries []CorpusEntry `toml:"entries"`
}

// LoadCorpusEntries reads [[entries]] tables from a TOML file. Entries
// without an id get one derived from their position.
func LoadCorpusEntries(path string) ([]CorpusEntry, error) {
	var f corpusFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("load corpus %s failed: %w", path, err)
	}
	seen := make(map[string]bool, len(f.Entries))
	for i := range f.Entries {
		e := &f.Entries[i]
		e.Title = strings.TrimSpace(e.Title)
		e.Snippet = strings.TrimSpace(e.Snippet)
		if e.Title == "" || e.Snippet == "" {
			return nil, fmt.Errorf("corpus entry %d: title and snippet are required", i)
		}
		if e.ID == "" {
			e.ID = fmt.Sprintf("entry-%d", i+1)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("corpus entry %d: duplicate id %q", i, e.ID)
		}
		seen[e.ID] = true
	}
	return f.Entries, nil
}

// Corpus is the shared legal knowledge index. It is embedded on first use
// and read-only afterwards; a failed build is retried by the next caller.
type Corpus struct {
	entries []CorpusEntry
	build   func(ctx context.Context, entries []CorpusEntry) ([]model.EmbeddingRecord, error)

	mu      sync.Mutex
	records atomic.Pointer[[]model.EmbeddingRecord]
}

func newCorpus(entries []CorpusEntry, build func(context.Context, []CorpusEntry) ([]model.EmbeddingRecord, error)) *Corpus {
	return &Corpus{entries: entries, build: build}
}

func (c *Corpus) Entries() []CorpusEntry {
	out := make([]CorpusEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Entry looks up an entry by id.
func (c *Corpus) Entry(id string) (CorpusEntry, bool) {
	for _, e := range c.entries {
		if e.ID == id {
			return e, true
		}
	}
	return CorpusEntry{}, false
}

func (c *Corpus) Built() bool {
	return c.records.Load() != nil
}

// Records returns the embedded corpus, building it once.
func (c *Corpus) Records(ctx context.Context) ([]model.EmbeddingRecord, error) {
	if recs := c.records.Load(); recs != nil {
		return *recs, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if recs := c.records.Load(); recs != nil {
		return *recs, nil
	}
	if len(c.entries) == 0 {
		empty := []model.EmbeddingRecord{}
		c.records.Store(&empty)
		return empty, nil
	}
	recs, err := c.build(ctx, c.entries)
	if err != nil {
		return nil, err
	}
	c.records.Store(&recs)
	return recs, nil
}
