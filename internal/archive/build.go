package archive

import (
	"archive/zip"
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// WeightedWord is one lexicon entry; lower weights are preferred.
type WeightedWord struct {
	Word   string
	Weight float32
}

// ParseWordList reads "word" or "word<TAB>weight" lines. Blank lines and lines
// starting with '#' are skipped.
func ParseWordList(r io.Reader) ([]WeightedWord, error) {
	var words []WeightedWord
	s := bufio.NewScanner(r)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		word, weightStr, hasWeight := strings.Cut(line, "\t")
		ww := WeightedWord{Word: strings.TrimSpace(word)}
		if hasWeight {
			w, err := strconv.ParseFloat(strings.TrimSpace(weightStr), 32)
			if err != nil || w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, fmt.Errorf("wordlist: line %d: bad weight %q", lineNo, weightStr)
			}
			ww.Weight = float32(w)
		}
		words = append(words, ww)
	}
	return words, s.Err()
}

type trieNode struct {
	id       int
	children map[rune]*trieNode
	final    bool
	weight   float32
}

// Build writes a zip archive whose acceptor is a prefix tree over words.
// Duplicate words keep their lowest weight.
func Build(w io.Writer, words []WeightedWord, meta Metadata) error {
	if len(words) == 0 {
		return fmt.Errorf("archive: build: empty word list")
	}
	meta.Acceptor = meta.acceptorName()
	meta.ErrModel = ""

	next := 0
	newNode := func() *trieNode {
		n := &trieNode{id: next, children: make(map[rune]*trieNode)}
		next++
		return n
	}
	root := newNode()
	for _, ww := range words {
		if ww.Word == "" || strings.ContainsAny(ww.Word, "\t\n") {
			return fmt.Errorf("archive: build: invalid word %q", ww.Word)
		}
		n := root
		for _, r := range ww.Word {
			c, ok := n.children[r]
			if !ok {
				c = newNode()
				n.children[r] = c
			}
			n = c
		}
		if !n.final || ww.Weight < n.weight {
			n.weight = ww.Weight
		}
		n.final = true
	}

	zw := zip.NewWriter(w)
	mw, err := zw.Create(metadataName)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(mw)
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("archive: build: metadata: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}

	aw, err := zw.Create(meta.Acceptor)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(aw)
	var finals []*trieNode
	queue := []*trieNode{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n.final {
			finals = append(finals, n)
		}
		keys := make([]rune, 0, len(n.children))
		for r := range n.children {
			keys = append(keys, r)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		for _, r := range keys {
			c := n.children[r]
			fmt.Fprintf(bw, "%d\t%d\t%s\n", n.id, c.id, attSymbol(r))
			queue = append(queue, c)
		}
	}
	for _, n := range finals {
		fmt.Fprintf(bw, "%d\t%s\n", n.id, strconv.FormatFloat(float64(n.weight), 'g', -1, 32))
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return zw.Close()
}

func attSymbol(r rune) string {
	if r == ' ' {
		return "@_SPACE_@"
	}
	return string(r)
}
