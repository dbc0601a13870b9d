// Package scorer computes IDF, TF, and TF·IDF over postings already
// persisted in the repository. It runs once per build, after every
// document has been indexed, and writes the resulting statistics back.
package scorer

import (
	"context"
	"fmt"
	"math"

	"github.com/adrianmoreno/corpussearch/internal/repository"
)

// tf computes the logarithmic term-frequency weight used throughout the
// index: 1 + log10(freq) when freq > 0, else 0.
func tf(freq int) float64 {
	if freq <= 0 {
		return 0
	}
	return 1 + math.Log10(float64(freq))
}

// idf computes log10(N/df); callers are expected to only call this for
// df > 0 (every term in the repository has at least one posting by
// construction).
func idf(n, df int) float64 {
	return math.Log10(float64(n) / float64(df))
}

// ScoreUnigrams recomputes idf/df for every term and tf/tf_idf for every
// one of its postings, persisting both back to repo.
func ScoreUnigrams(ctx context.Context, repo repository.Repository) error {
	n, err := repo.DistinctDocCount(ctx)
	if err != nil {
		return fmt.Errorf("distinct doc count: %w", err)
	}

	terms, err := repo.ListTermsAlpha(ctx)
	if err != nil {
		return fmt.Errorf("list terms: %w", err)
	}

	for _, term := range terms {
		weighted, err := repo.WeightedFreqs(ctx, term)
		if err != nil {
			return fmt.Errorf("weighted freqs for %q: %w", term, err)
		}
		df := len(weighted)
		if df == 0 {
			continue
		}
		termIDF := idf(n, df)
		if err := repo.SetTermStats(ctx, term, termIDF, df); err != nil {
			return fmt.Errorf("set term stats for %q: %w", term, err)
		}
		for pathID, wf := range weighted {
			termTF := tf(wf)
			if err := repo.SetPostingScores(ctx, term, pathID, termTF, termTF*termIDF); err != nil {
				return fmt.Errorf("set posting scores for %q/%q: %w", term, pathID, err)
			}
		}
	}
	return nil
}

// ScoreBigrams mirrors ScoreUnigrams for the bigram namespace.
func ScoreBigrams(ctx context.Context, repo repository.Repository) error {
	n, err := repo.DistinctBigramDocCount(ctx)
	if err != nil {
		return fmt.Errorf("distinct bigram doc count: %w", err)
	}

	bigrams, err := repo.ListBigramsAlpha(ctx)
	if err != nil {
		return fmt.Errorf("list bigrams: %w", err)
	}

	for _, bigram := range bigrams {
		freqs, err := repo.BigramFreqs(ctx, bigram)
		if err != nil {
			return fmt.Errorf("bigram freqs for %q: %w", bigram, err)
		}
		df := len(freqs)
		if df == 0 {
			continue
		}
		bigramIDF := idf(n, df)
		if err := repo.SetBigramStats(ctx, bigram, bigramIDF, df); err != nil {
			return fmt.Errorf("set bigram stats for %q: %w", bigram, err)
		}
		for pathID, wf := range freqs {
			bigramTF := tf(wf)
			if err := repo.SetBigramPostingScores(ctx, bigram, pathID, bigramTF, bigramTF*bigramIDF); err != nil {
				return fmt.Errorf("set bigram posting scores for %q/%q: %w", bigram, pathID, err)
			}
		}
	}
	return nil
}
