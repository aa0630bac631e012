// Copyright 2026 The fast-bert Authors. SPDX-License-Identifier: Apache-2.0

// Package tokenizer implements the WordPiece tokenizer used by BERT-style
// pretrained models. It is built from the vocab.txt shipped inside the
// pretrained model directory, and encodes text into fixed-length token-id
// sequences framed by the [CLS] and [SEP] special tokens.
package tokenizer

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// Special tokens expected in the vocabulary.
const (
	ClsToken = "[CLS]"
	SepToken = "[SEP]"
	UnkToken = "[UNK]"
	PadToken = "[PAD]"
)

// VocabFile is the vocabulary file name inside a pretrained model directory.
const VocabFile = "vocab.txt"

// WordPiece is a greedy longest-match-first WordPiece tokenizer. It is a
// single value: construction returns the tokenizer itself, never a collection
// wrapping it.
type WordPiece struct {
	vocab map[string]int

	clsID, sepID, unkID, padID int
}

// FromPretrained builds the tokenizer from the vocab.txt inside the pretrained
// model directory. One vocabulary entry per line, ids assigned in file order.
func FromPretrained(modelDir string) (*WordPiece, error) {
	vocabPath := filepath.Join(modelDir, VocabFile)
	file, err := os.Open(vocabPath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening vocabulary %q", vocabPath)
	}
	defer func() { _ = file.Close() }()

	vocab := make(map[string]int)
	scanner := bufio.NewScanner(file)
	idx := 0
	for scanner.Scan() {
		vocab[scanner.Text()] = idx
		idx++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading vocabulary %q", vocabPath)
	}
	if len(vocab) == 0 {
		return nil, errors.Errorf("vocabulary %q is empty", vocabPath)
	}

	t := &WordPiece{vocab: vocab}
	for _, special := range []struct {
		token string
		id    *int
	}{
		{ClsToken, &t.clsID},
		{SepToken, &t.sepID},
		{UnkToken, &t.unkID},
		{PadToken, &t.padID},
	} {
		id, found := vocab[special.token]
		if !found {
			return nil, errors.Errorf("vocabulary %q is missing special token %s", vocabPath, special.token)
		}
		*special.id = id
	}
	return t, nil
}

// VocabSize returns the number of entries in the vocabulary.
func (t *WordPiece) VocabSize() int { return len(t.vocab) }

// Encode tokenizes text into exactly maxSeqLen token ids: [CLS], the WordPiece
// pieces truncated to fit, [SEP], then [PAD] up to maxSeqLen. The returned
// mask is 1 where a real (non-padding) token is present.
func (t *WordPiece) Encode(text string, maxSeqLen int) (ids, mask []int32) {
	pieces := t.Tokenize(text)
	if len(pieces) > maxSeqLen-2 {
		pieces = pieces[:maxSeqLen-2]
	}

	ids = make([]int32, 0, maxSeqLen)
	ids = append(ids, int32(t.clsID))
	for _, piece := range pieces {
		id, found := t.vocab[piece]
		if !found {
			id = t.unkID
		}
		ids = append(ids, int32(id))
	}
	ids = append(ids, int32(t.sepID))

	mask = make([]int32, maxSeqLen)
	for i := range ids {
		mask[i] = 1
	}
	for len(ids) < maxSeqLen {
		ids = append(ids, int32(t.padID))
	}
	return ids, mask
}

// Tokenize splits text into WordPiece pieces, without special tokens: basic
// tokenization on whitespace and punctuation, then greedy longest-match-first
// sub-word splitting with "##" continuations.
func (t *WordPiece) Tokenize(text string) []string {
	var pieces []string
	for _, word := range basicTokenize(text) {
		pieces = append(pieces, t.wordPieceTokenize(word)...)
	}
	return pieces
}

// basicTokenize splits on whitespace and keeps punctuation as separate words.
func basicTokenize(text string) []string {
	var words []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r):
			flush()
			words = append(words, string(r))
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return words
}

func (t *WordPiece) wordPieceTokenize(word string) []string {
	if len(word) == 0 {
		return nil
	}

	var pieces []string
	runes := []rune(word)
	start := 0
	for start < len(runes) {
		end := len(runes)
		var piece string
		found := false
		for end > start {
			candidate := string(runes[start:end])
			if start > 0 {
				candidate = "##" + candidate
			}
			if _, ok := t.vocab[candidate]; ok {
				piece = candidate
				found = true
				break
			}
			end--
		}
		if !found {
			// No sub-word split exists: the whole word is unknown.
			return []string{UnkToken}
		}
		pieces = append(pieces, piece)
		start = end
	}
	return pieces
}
