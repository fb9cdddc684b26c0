package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/document-qa/internal/core/domain"
	"github.com/kirillkom/document-qa/internal/core/ports"
)

type AnswerComposer struct {
	completer ports.Completer
}

func NewAnswerComposer(completer ports.Completer) *AnswerComposer {
	return &AnswerComposer{completer: completer}
}

// Compose makes exactly one completion call. Backend errors pass through
// unchanged and the reply is not second-guessed.
func (c *AnswerComposer) Compose(ctx context.Context, question string, grounding domain.RetrievalResult) (*domain.Answer, error) {
	text, err := c.completer.Complete(ctx, BuildAnswerPrompt(question, grounding))
	if err != nil {
		return nil, err
	}
	sources := make([]domain.ScoredSegment, len(grounding))
	copy(sources, grounding)
	return &domain.Answer{
		Text:    text,
		Sources: sources,
	}, nil
}

func BuildAnswerPrompt(question string, grounding domain.RetrievalResult) string {
	var contextBuilder strings.Builder
	if len(grounding) == 0 {
		contextBuilder.WriteString("No relevant context was found in the document.\n")
	}
	for idx, hit := range grounding {
		header := fmt.Sprintf("[%d]", idx+1)
		if hit.Segment.Page > 0 {
			header += fmt.Sprintf(" page=%d", hit.Segment.Page)
		}
		contextBuilder.WriteString(fmt.Sprintf("%s score=%.3f\n%s\n\n", header, hit.Score, hit.Segment.Text))
	}

	return fmt.Sprintf(`Answer the user question only from the context below.
If the context is insufficient, say it directly.

Context:
%s
Question:
%s
`, contextBuilder.String(), question)
}
