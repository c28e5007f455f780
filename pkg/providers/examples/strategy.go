package examples

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/aretw0/ankihorse/pkg/core"
	"github.com/aretw0/ankihorse/pkg/sanitize"
)

// Cloze replaces the expression in the clozed sentence.
const Cloze = "（　）"

// Strategy fills empty sentence fields with an example for the source
// expression. Targets are either (sentence, cloze) or
// (sentence, translation, cloze). Notes with any target already filled are
// left alone.
type Strategy struct {
	core.Fields
	Weighted bool

	corpus *Corpus
	logger *slog.Logger

	mu  sync.Mutex
	rng Sampler
}

// New creates an examples strategy over corpus.
func New(sources, targets []string, corpus *Corpus, weighted bool, logger *slog.Logger) (*Strategy, error) {
	if len(targets) != 2 && len(targets) != 3 {
		return nil, fmt.Errorf("examples need 2 or 3 target fields, got %d", len(targets))
	}
	if corpus == nil {
		return nil, fmt.Errorf("examples need a corpus")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Strategy{
		Fields:   core.Fields{Sources: sources, Targets: targets},
		Weighted: weighted,
		corpus:   corpus,
		logger:   logger,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}, nil
}

func (s *Strategy) Update(_ context.Context, n core.Note) (bool, error) {
	_, query, ok := core.FirstQuery(n, s.Sources, sanitize.Query)
	if !ok {
		return false, nil
	}
	if core.AnyFilled(n, s.Targets) {
		return false, nil
	}

	s.mu.Lock()
	found := s.corpus.Find(query, 1, s.Weighted, s.rng)
	s.mu.Unlock()
	if len(found) == 0 {
		s.logger.Debug("no example sentence", "note", n.ID(), "query", query)
		return false, nil
	}
	ex := found[0]

	sentence, cloze := s.Targets[0], s.Targets[len(s.Targets)-1]
	n.Set(sentence, ex.Display())
	if len(s.Targets) == 3 {
		n.Set(s.Targets[1], ex.Translation)
	}
	n.Set(cloze, strings.ReplaceAll(ex.Sentence, ex.Surface, Cloze))
	return true, nil
}
