package styles

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// VocabFile returns the accept.txt or reject.txt path of a vocabulary domain.
func (ix *Index) VocabFile(domain string, accept bool) string {
	name := "reject.txt"
	if accept {
		name = "accept.txt"
	}
	return filepath.Join(ix.root, vocabDir, domain, name)
}

// ErrUnknownVocab is returned for a domain that is not a directory under
// StylesPath/Vocab.
var ErrUnknownVocab = errors.New("unknown vocabulary")

// AppendVocabTerm adds term to a domain's accept or reject list and rewrites
// the list sorted. The domain must be one Vocab reports and the file must
// already exist. Concurrent writers to the same list are not coordinated.
func (ix *Index) AppendVocabTerm(domain, term string, accept bool) error {
	if err := ix.checkVocab(domain); err != nil {
		return err
	}
	path := ix.VocabFile(domain, accept)
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read vocabulary: %w", err)
	}

	lines := splitLines(string(content))
	lines = append(lines, term)
	sort.Strings(lines)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat vocabulary: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strings.Join(lines, "\n")), info.Mode().Perm()); err != nil {
		return fmt.Errorf("write vocabulary: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace vocabulary: %w", err)
	}
	return nil
}

func (ix *Index) checkVocab(domain string) error {
	vocab, err := ix.Vocab()
	if err != nil {
		return err
	}
	for _, e := range vocab {
		if e.Name == domain {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownVocab, domain)
}

// splitLines splits on "\n", dropping a trailing "\r" from each line and the
// empty element after a final newline.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
