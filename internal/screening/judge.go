package screening

import (
	"context"

	"github.com/screenlab/screensim/internal/corpus"
)

// Judge decides the relevance of a proposed document.
type Judge interface {
	Judge(ctx context.Context, doc corpus.Document) (corpus.Grade, error)
}

// OracleJudge answers from the ground-truth grade carried by the corpus.
type OracleJudge struct{}

// Judge returns doc's ground-truth grade.
func (OracleJudge) Judge(_ context.Context, doc corpus.Document) (corpus.Grade, error) {
	return doc.Grade, nil
}

// JudgeFunc adapts a function to Judge.
type JudgeFunc func(ctx context.Context, doc corpus.Document) (corpus.Grade, error)

// Judge calls f.
func (f JudgeFunc) Judge(ctx context.Context, doc corpus.Document) (corpus.Grade, error) {
	return f(ctx, doc)
}
