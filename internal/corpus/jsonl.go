package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/screenlab/screensim/internal/pkg/errors"
	"github.com/screenlab/screensim/internal/pkg/hash"
)

// maxLineBytes bounds a single JSONL record (long abstracts plus headings).
const maxLineBytes = 4 << 20

// ReadJSONL parses one document per line. Records without an id get a
// deterministic one derived from source and text. Blank lines are skipped.
func ReadJSONL(r io.Reader, source string) ([]Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var docs []Document
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var d Document
		if err := json.Unmarshal([]byte(text), &d); err != nil {
			return nil, errors.ValidationError(fmt.Sprintf("line %d: invalid document record", line)).
				WithDetail("cause", err.Error())
		}
		if d.Grade < NotRelevant || d.Grade > HighlyRelevant {
			return nil, errors.ValidationError(fmt.Sprintf("line %d: relevance %d out of range", line, d.Grade))
		}
		if d.ID == "" {
			d.ID = hash.DocumentID(source, d.Text())
		}
		docs = append(docs, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}

	return docs, nil
}

// LoadJSONL reads a JSONL corpus file.
func LoadJSONL(path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus: %w", err)
	}
	defer f.Close()

	return ReadJSONL(f, path)
}

// WriteJSONL writes docs in the format ReadJSONL accepts.
func WriteJSONL(w io.Writer, docs []Document) error {
	enc := json.NewEncoder(w)
	for _, d := range docs {
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("encoding document %s: %w", d.ID, err)
		}
	}
	return nil
}
